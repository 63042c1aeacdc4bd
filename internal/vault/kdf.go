package vault

import (
	"crypto/rand"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	saltLen = 16

	// defaultArgon2Time/Memory/Threads are the default work factor.
	// WorkFactor lets tests dial this down so unit tests don't pay the
	// full KDF cost on every run.
	defaultArgon2Time    = 3
	defaultArgon2Memory  = 64 * 1024 // KiB
	defaultArgon2Threads = 4
)

// WorkFactor parameterizes the password KDF. The zero value is not
// usable; use DefaultWorkFactor() or a reduced set for tests.
type WorkFactor struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

// DefaultWorkFactor returns production-strength Argon2id parameters.
func DefaultWorkFactor() WorkFactor {
	return WorkFactor{Time: defaultArgon2Time, Memory: defaultArgon2Memory, Threads: defaultArgon2Threads}
}

func newSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// deriveKEK applies Argon2id over passphrase with salt and wf, yielding a
// key-encryption key sized for chacha20poly1305.
func deriveKEK(passphrase string, salt []byte, wf WorkFactor) []byte {
	return argon2.IDKey([]byte(passphrase), salt, wf.Time, wf.Memory, wf.Threads, chacha20poly1305.KeySize)
}

// sealedBlob is the persisted, authenticated-encrypted representation of
// a vault's seed.
type sealedBlob struct {
	Version    int        `json:"version"`
	Salt       []byte     `json:"salt"`
	WorkFactor WorkFactor `json:"workFactor"`
	Nonce      []byte     `json:"nonce"`
	Ciphertext []byte     `json:"ciphertext"`
}

const blobVersion = 1

func seal(passphrase string, wf WorkFactor, plaintext []byte) (sealedBlob, error) {
	salt, err := newSalt()
	if err != nil {
		return sealedBlob{}, err
	}
	kek := deriveKEK(passphrase, salt, wf)

	aead, err := chacha20poly1305.New(kek)
	if err != nil {
		return sealedBlob{}, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return sealedBlob{}, err
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	return sealedBlob{
		Version:    blobVersion,
		Salt:       salt,
		WorkFactor: wf,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

// unseal decrypts blob with passphrase. A tag mismatch and a structurally
// invalid blob are both reported as errIncorrectPassphrase: only a
// version/shape check before touching the AEAD distinguishes "not a blob
// at all" (InvalidBackup, used solely by Restore) from "wrong passphrase
// or corrupted ciphertext" (IncorrectPassphrase).
func unseal(passphrase string, blob sealedBlob) ([]byte, error) {
	kek := deriveKEK(passphrase, blob.Salt, blob.WorkFactor)
	aead, err := chacha20poly1305.New(kek)
	if err != nil {
		return nil, errIncorrectPassphrase(err)
	}
	if len(blob.Nonce) != aead.NonceSize() {
		return nil, errIncorrectPassphrase(nil)
	}
	plaintext, err := aead.Open(nil, blob.Nonce, blob.Ciphertext, nil)
	if err != nil {
		return nil, errIncorrectPassphrase(err)
	}
	return plaintext, nil
}
