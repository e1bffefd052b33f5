package cipher

import (
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

func TestReveal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"classic greeting", "Khoor, Zruog!", "!ygmjR ,jggzC"},
		{"wraps below a", "abc", "uts"},
		{"wraps below A", "ABC", "UTS"},
		{"digits and punctuation", "12-34", "43-21"},
		{"non-ascii passes through", "Ωk é", "é cΩ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reveal(tt.in))
		})
	}
}

func TestRevealInvertsConceal(t *testing.T) {
	inputs := []string{
		"",
		"Hello, World!",
		"the quick brown fox jumps over the lazy dog",
		"THE QUICK BROWN FOX",
		"Zz Aa 09 ~!@",
		"mixed 日本語 text ✨",
		"a\xffb",
		"\xe6\x97 broken \xc3",
		"\x80\xc3",
		"x\x80\xc3y\ufffd",
	}
	for _, s := range inputs {
		assert.Equal(t, s, Reveal(Conceal(s)), "round trip of %q", s)
	}
}

func TestRevealPreservesCase(t *testing.T) {
	upper := []rune(Reveal("A"))
	lower := []rune(Reveal("a"))

	assert.Len(t, upper, 1)
	assert.Len(t, lower, 1)
	assert.True(t, unicode.IsUpper(upper[0]))
	assert.True(t, unicode.IsLower(lower[0]))
	assert.Equal(t, 'S', upper[0])
	assert.Equal(t, 's', lower[0])
}

func TestRevealMirrorsNonLetters(t *testing.T) {
	in := []rune("a1b,c d!")
	out := []rune(Reveal(string(in)))

	assert.Len(t, out, len(in))
	for i, r := range in {
		if unicode.IsLetter(r) {
			continue
		}
		assert.Equal(t, r, out[len(in)-1-i], "rune %q at %d", r, i)
	}
}

func TestRotate(t *testing.T) {
	assert.Equal(t, "Khoor", Rotate("Hello", 3))
	assert.Equal(t, "Hello", Rotate("Khoor", -3))
	assert.Equal(t, "Hello", Rotate("Hello", 26))
	assert.Equal(t, "Hello", Rotate("Hello", -52))
	assert.Equal(t, Rotate("xyz", 29), Rotate("xyz", 3))
}

func TestReverse(t *testing.T) {
	assert.Equal(t, "", Reverse(""))
	assert.Equal(t, "a", Reverse("a"))
	assert.Equal(t, "cba", Reverse("abc"))
	assert.Equal(t, "語本日", Reverse("日本語"))
	assert.Equal(t, "b\xffa", Reverse("a\xffb"))
	assert.Equal(t, "\xc3x日", Reverse("日x\xc3"))
	// reversed byte by byte this pair would form "À"
	assert.Equal(t, "\x80\xc3", Reverse("\x80\xc3"))
}

func TestRevealKeepsInvalidBytes(t *testing.T) {
	assert.Equal(t, "t\xffs", Reveal("a\xffb"))
	assert.Equal(t, "j\xffi", Conceal("a\xffb"))
}
