package hash

// Hash hashes secrets and checks plaintext against a stored hash.
type Hash interface {
	Hash(str string) ([]byte, error)
	Verify(hashed, str string) bool
}

// Algorithm names accepted by NewPassword.
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// NewPassword returns the password hasher selected by algorithm.
// Unknown names fall back to bcrypt.
func NewPassword(algorithm string, bcryptCost int, pepper string) Hash {
	if algorithm == AlgorithmArgon2id {
		return NewArgon2id(pepper)
	}

	return NewBcrypt(bcryptCost, pepper)
}
