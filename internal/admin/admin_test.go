package admin

import "testing"

func TestCheckKeyMatchesSuperAdmin(t *testing.T) {
	ok, isSuper := CheckKey("master-key", "master-key", "")
	if !ok || !isSuper {
		t.Fatalf("CheckKey(match super) = (%v, %v), want (true, true)", ok, isSuper)
	}
}

func TestCheckKeyMatchesPerAccountPassword(t *testing.T) {
	ok, isSuper := CheckKey("alice-pw", "master-key", "alice-pw")
	if !ok || isSuper {
		t.Fatalf("CheckKey(match per-account) = (%v, %v), want (true, false)", ok, isSuper)
	}
}

func TestCheckKeyRejectsWrongKey(t *testing.T) {
	ok, isSuper := CheckKey("wrong", "master-key", "alice-pw")
	if ok || isSuper {
		t.Fatalf("CheckKey(wrong) = (%v, %v), want (false, false)", ok, isSuper)
	}
}

func TestCheckKeyRejectsEmptyCandidateAgainstEmptyConfig(t *testing.T) {
	// An unset super-admin key or per-account password must never match an
	// empty candidate: otherwise an unconfigured deployment would silently
	// authorize anyone sending an empty AdminAuth.Key.
	ok, _ := CheckKey("", "", "")
	if ok {
		t.Fatal("CheckKey with empty candidate and empty config should never succeed")
	}
}

func TestCanEditTargetEnforcesPriority(t *testing.T) {
	actor := Actor{Priority: 5}
	if CanEditTarget(actor, 5) {
		t.Fatal("actor should not be able to edit a target at the same priority")
	}
	if !CanEditTarget(actor, 4) {
		t.Fatal("actor should be able to edit a strictly lower priority target")
	}
	if CanEditTarget(actor, 6) {
		t.Fatal("actor should not be able to edit a strictly higher priority target")
	}
}

func TestSuperAdminExemptFromPriorityRule(t *testing.T) {
	actor := Actor{Priority: 0, IsSuperAdmin: true}
	if !CanEditTarget(actor, 255) {
		t.Fatal("super-admin should be able to edit any target regardless of priority")
	}
	if !CanAssignRole(actor, 255) {
		t.Fatal("super-admin should be able to assign any role priority")
	}
}

func TestCanAssignRoleRequiresStrictlyLowerPriority(t *testing.T) {
	actor := Actor{Priority: 5}
	if CanAssignRole(actor, 5) {
		t.Fatal("assigned role priority must be strictly below the actor's")
	}
	if !CanAssignRole(actor, 4) {
		t.Fatal("assigning a strictly lower role priority should be allowed")
	}
}

func TestRequireChecksPermissionBit(t *testing.T) {
	actor := Actor{Priority: 5, Permissions: uint32(PermMute)}
	if !Require(actor, PermMute, -1) {
		t.Fatal("actor with PermMute should be allowed to mute")
	}
	if Require(actor, PermBan, -1) {
		t.Fatal("actor without PermBan should not be allowed to ban")
	}
}

func TestRequireChecksTargetPriorityWhenGiven(t *testing.T) {
	actor := Actor{Priority: 5, Permissions: uint32(PermBan)}
	if !Require(actor, PermBan, 4) {
		t.Fatal("actor should be able to ban a lower-priority target")
	}
	if Require(actor, PermBan, 5) {
		t.Fatal("actor should not be able to ban a same-priority target")
	}
}

func TestRequireSuperAdminBypassesPermissionBits(t *testing.T) {
	actor := Actor{IsSuperAdmin: true}
	if !Require(actor, PermAdmin, -1) {
		t.Fatal("super-admin should bypass the permission bit check")
	}
}
