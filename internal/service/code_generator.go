package service

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// CodeAlphabet omits I, O, 0 and 1. Its 32 symbols divide 256 evenly, so
// masking a random byte draws uniformly.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 6

// CodeGenerator issues student access codes and receipt numbers.
type CodeGenerator struct {
	prefix string
	read   func([]byte) (int, error)
}

// NewCodeGenerator returns a generator whose receipts start with prefix.
func NewCodeGenerator(prefix string) *CodeGenerator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "AFA"
	}
	return &CodeGenerator{prefix: prefix, read: rand.Read}
}

// AccessCode returns a fresh six-character code.
func (g *CodeGenerator) AccessCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := g.read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	out := make([]byte, codeLength)
	for i, b := range buf {
		out[i] = CodeAlphabet[int(b)&(len(CodeAlphabet)-1)]
	}
	return string(out), nil
}

// ReceiptNumber returns PREFIX-XXXXXX.
func (g *CodeGenerator) ReceiptNumber() (string, error) {
	code, err := g.AccessCode()
	if err != nil {
		return "", err
	}
	return g.prefix + "-" + code, nil
}

// NormalizeAccessCode canonicalises user input for comparison.
func NormalizeAccessCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
