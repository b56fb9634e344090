// Package admin implements the in-protocol admin control plane (§4.I):
// permission-bit checks, role-priority edit rules, and the constant-time
// key comparisons AdminAuth depends on.
package admin

import (
	"crypto/sha256"
	"crypto/subtle"
)

// Permission is one privileged-packet capability bit.
type Permission uint32

const (
	PermNotice Permission = 1 << iota
	PermNoticeToEveryone
	PermKick
	PermKickEveryone
	PermMute
	PermBan
	PermEditRoles
	PermAdmin
)

// Has reports whether bits grants permission p.
func (p Permission) Has(bits uint32) bool {
	return bits&uint32(p) != 0
}

// Actor is the authenticated admin principal driving a privileged request.
type Actor struct {
	AccountID    int32
	Priority     uint8
	Permissions  uint32
	IsSuperAdmin bool
}

// hashKey returns a fixed-size digest so constant-time comparison doesn't
// leak the compared keys' lengths through timing.
func hashKey(key string) [32]byte {
	return sha256.Sum256([]byte(key))
}

// CheckKey compares candidate against the global super-admin key first,
// then against the account's own per-user admin password, both in constant
// time (§4.I: "first compared in constant time... failing that, against
// the user's per-account admin password").
func CheckKey(candidate, superAdminKey, perAccountPassword string) (ok bool, isSuperAdmin bool) {
	cand := hashKey(candidate)
	if superAdminKey != "" {
		super := hashKey(superAdminKey)
		if subtle.ConstantTimeCompare(cand[:], super[:]) == 1 {
			return true, true
		}
	}
	if perAccountPassword != "" {
		acct := hashKey(perAccountPassword)
		if subtle.ConstantTimeCompare(cand[:], acct[:]) == 1 {
			return true, false
		}
	}
	return false, false
}

// CanEditTarget enforces the role-priority rule: targets strictly above the
// actor's priority may not be edited, and super-admins are exempt.
func CanEditTarget(actor Actor, targetPriority uint8) bool {
	if actor.IsSuperAdmin {
		return true
	}
	return targetPriority < actor.Priority
}

// CanAssignRole enforces the assignment half of the same rule: a role
// assigned to someone must have priority strictly below the actor's,
// super-admin exempt.
func CanAssignRole(actor Actor, newPriority uint8) bool {
	if actor.IsSuperAdmin {
		return true
	}
	return newPriority < actor.Priority
}

// Require checks both the permission bit and, when targetPriority is
// supplied (>=0 meaningful, pass -1 to skip), the priority rule in one call.
// This is the shape every privileged packet handler needs before forwarding
// a mutation to the bridge.
func Require(actor Actor, perm Permission, targetPriority int) bool {
	if !actor.IsSuperAdmin && !perm.Has(actor.Permissions) {
		return false
	}
	if targetPriority >= 0 && !CanEditTarget(actor, uint8(targetPriority)) {
		return false
	}
	return true
}
