// Package crypto implements the packet-body encryption frame: XChaCha20-
// Poly1305 authenticated encryption in two modes, shared-keypair (per
// connection, negotiated at handshake) and pre-shared-key (used once a
// secret is distributed out of band).
package crypto

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
)

const (
	// NonceSize is the XChaCha20-Poly1305 nonce length.
	NonceSize = chacha20poly1305.NonceSizeX
	// TagSize is the Poly1305 authentication tag length.
	TagSize = chacha20poly1305.Overhead
	// KeySize is the symmetric key length for both modes.
	KeySize = chacha20poly1305.KeySize
	// PublicKeySize is the X25519 public key length.
	PublicKeySize = 32
)

var (
	// ErrWrongCryptoBoxState is returned when a packet claims to be
	// encrypted but no box has been established for the connection yet.
	ErrWrongCryptoBoxState = errors.New("crypto: no box established for this connection")
	// ErrDecryption covers any authentication/decryption failure. It never
	// distinguishes *why* decryption failed, so as not to leak information
	// about partially-decrypted bytes.
	ErrDecryption = errors.New("crypto: decryption failed")
	// ErrMalformedCiphertext is returned when the body is shorter than
	// nonce+tag, i.e. it cannot possibly be a valid frame.
	ErrMalformedCiphertext = errors.New("crypto: malformed ciphertext")
)

// Box wraps one established symmetric key and performs the wire framing:
// nonce ‖ tag ‖ ciphertext.
type Box struct {
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
		NonceSize() int
		Overhead() int
	}
}

// NewBoxFromKey builds a Box directly from a 32-byte symmetric key: the
// "Secret" mode, used for the pre-shared-key path.
func NewBoxFromKey(key [KeySize]byte) (*Box, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, err
	}
	return &Box{aead: aead}, nil
}

// Keypair is a long-lived X25519 keypair used for the "Shared" handshake
// mode: each side derives the same symmetric key via Diffie-Hellman.
type Keypair struct {
	Private [32]byte
	Public  [32]byte
}

// GenerateKeypair creates a fresh X25519 keypair from a CSPRNG.
func GenerateKeypair() (*Keypair, error) {
	var kp Keypair
	if _, err := rand.Read(kp.Private[:]); err != nil {
		return nil, err
	}
	pub, err := curve25519.X25519(kp.Private[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	copy(kp.Public[:], pub)
	return &kp, nil
}

// DeriveBox computes the shared secret against peerPublic and returns a Box
// ready to encrypt/decrypt for this connection. This is the "Shared" mode.
func (kp *Keypair) DeriveBox(peerPublic [32]byte) (*Box, error) {
	shared, err := curve25519.X25519(kp.Private[:], peerPublic[:])
	if err != nil {
		return nil, err
	}
	var key [KeySize]byte
	copy(key[:], shared)
	return NewBoxFromKey(key)
}

// Encrypt produces a fresh nonce from a CSPRNG and returns
// nonce ‖ tag ‖ ciphertext for plaintext. The underlying AEAD only produces
// ciphertext ‖ tag, so the two are swapped after sealing to match the wire
// format every peer expects.
func (b *Box) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	sealed := b.aead.Seal(nil, nonce, plaintext, nil)
	ciphertext, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	out := make([]byte, 0, NonceSize+TagSize+len(ciphertext))
	out = append(out, nonce...)
	out = append(out, tag...)
	out = append(out, ciphertext...)
	return out, nil
}

// Decrypt validates and decrypts an encrypted packet body framed as
// nonce ‖ tag ‖ ciphertext, reassembling the ciphertext ‖ tag layout the
// AEAD itself expects before calling Open. On authentication failure it
// returns ErrDecryption without exposing any partially-decrypted bytes.
func (b *Box) Decrypt(framed []byte) ([]byte, error) {
	if len(framed) < NonceSize+TagSize {
		return nil, ErrMalformedCiphertext
	}
	nonce := framed[:NonceSize]
	tag := framed[NonceSize : NonceSize+TagSize]
	ciphertext := framed[NonceSize+TagSize:]

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plain, err := b.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return plain, nil
}
