package game

import "crypto/rand"

// CodeAlphabet is the character set for join codes: uppercase letters and
// digits minus the easily-confused O, 0, I, 1 and L. Codes get read aloud
// and typed from phone screens, so ambiguity matters more than entropy.
const CodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// CodeLength is the fixed length of a join code.
const CodeLength = 6

// NewCode returns a random join code.
//
// Bytes from crypto/rand are mapped onto the alphabet with rejection
// sampling: any byte above the largest multiple of len(alphabet) is
// discarded rather than taken modulo, which would skew the distribution
// toward the front of the alphabet.
//
// Uniqueness is NOT guaranteed here — the caller checks the store and
// retries on collision.
func NewCode() string {
	const max = byte(255 - (256 % len(CodeAlphabet)))

	out := make([]byte, 0, CodeLength)
	buf := make([]byte, CodeLength*2)

	for {
		if _, err := rand.Read(buf); err != nil {
			// crypto/rand only fails if the OS entropy source is broken;
			// nothing sensible to do but stop.
			panic(err)
		}
		for _, b := range buf {
			if b <= max {
				out = append(out, CodeAlphabet[int(b)%len(CodeAlphabet)])
				if len(out) == CodeLength {
					return string(out)
				}
			}
		}
	}
}
