// internal/cipher/cipher.go
//
// Transform engine for challenge messages.
// Responsibilities:
//   - Reveal: rotate ASCII letters back by Shift, then reverse the text.
//   - Conceal: the inverse of Reveal (reverse, then rotate forward).
//
// Notes:
//   - Only a–z / A–Z rotate; case is preserved.
//   - Digits, punctuation and non-ASCII runes are copied unchanged.
//   - Reversal works on runes so multi-byte characters stay intact. A run of
//     bytes that is not valid UTF-8 moves as one unit in its original order,
//     so reversing twice always gives back the input.

package cipher

import "unicode/utf8"

// Shift is the fixed alphabet offset used by Reveal and Conceal.
const Shift = 8

// Reveal decodes an encoded message: every letter moves Shift positions
// backward in its alphabet and the resulting runes are reversed.
func Reveal(s string) string {
	return Reverse(Rotate(s, -Shift))
}

// Conceal encodes a plain message so that Reveal(Conceal(s)) == s.
func Conceal(s string) string {
	return Rotate(Reverse(s), Shift)
}

// Rotate shifts ASCII letters by n positions (mod 26), keeping case.
// Negative n shifts backward.
func Rotate(s string, n int) string {
	n %= 26
	if n < 0 {
		n += 26
	}
	// ASCII letters are single bytes and never appear inside a multi-byte
	// sequence, so a byte walk leaves everything else untouched.
	out := []byte(s)
	for i, b := range out {
		switch {
		case b >= 'a' && b <= 'z':
			out[i] = 'a' + (b-'a'+byte(n))%26
		case b >= 'A' && b <= 'Z':
			out[i] = 'A' + (b-'A'+byte(n))%26
		}
	}
	return string(out)
}

// Reverse returns s with its runes in reverse order. Consecutive invalid
// bytes are kept together and copied as is; split up they could pair into
// a valid rune once reversed.
func Reverse(s string) string {
	out := make([]byte, len(s))
	end := len(out)
	for i := 0; i < len(s); {
		n := unitLen(s[i:])
		end -= n
		copy(out[end:], s[i:i+n])
		i += n
	}
	return string(out)
}

// unitLen is the byte length of the rune or invalid run starting s.
func unitLen(s string) int {
	r, size := utf8.DecodeRuneInString(s)
	if r != utf8.RuneError || size != 1 {
		return size
	}
	n := size
	for n < len(s) {
		r, size = utf8.DecodeRuneInString(s[n:])
		if r != utf8.RuneError || size != 1 {
			break
		}
		n++
	}
	return n
}
