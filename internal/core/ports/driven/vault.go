package driven

// Vault seals small string maps with authenticated encryption.
// Sealed values are opaque printable strings safe to store in text columns.
type Vault interface {
	// Seal serialises and encrypts the payload.
	// Two seals of the same payload produce different outputs.
	Seal(payload map[string]string) (string, error)

	// Unseal reverses Seal. Any tampering, wrong key or malformed input
	// fails with domain.ErrDecryption.
	Unseal(sealed string) (map[string]string, error)
}
