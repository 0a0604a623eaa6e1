package auth

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// macBytes is how much of the blake2b digest ends up in a code.
const macBytes = 10

// CodeSubject is the user state a confirmation code is bound to. Any change
// to it (most importantly LastLogin) invalidates codes issued earlier.
type CodeSubject struct {
	UserID    int64
	Email     string
	LastLogin *time.Time
}

// CodeGenerator makes and checks email confirmation codes.
// A code is "<issue time base36>-<keyed blake2b mac>"; nothing is stored server-side.
type CodeGenerator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodeGenerator returns a generator keyed by secret. now may be nil for time.Now.
func NewCodeGenerator(secret []byte, ttl time.Duration, now func() time.Time) *CodeGenerator {
	if now == nil {
		now = time.Now
	}
	// blake2b keys are capped at 64 bytes
	if len(secret) > blake2b.Size {
		sum := blake2b.Sum256(secret)
		secret = sum[:]
	}
	return &CodeGenerator{secret: secret, ttl: ttl, now: now}
}

// Make issues a code for s at the current time.
func (g *CodeGenerator) Make(s CodeSubject) (string, error) {
	issued := g.now().Unix()
	mac, err := g.mac(s, issued)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(issued, 36) + "-" + mac, nil
}

// Check reports whether code was issued for s and has not expired.
func (g *CodeGenerator) Check(s CodeSubject, code string) bool {
	tsPart, macPart, ok := strings.Cut(code, "-")
	if !ok || tsPart == "" || macPart == "" {
		return false
	}
	issued, err := strconv.ParseInt(tsPart, 36, 64)
	if err != nil {
		return false
	}

	want, err := g.mac(s, issued)
	if err != nil {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(macPart)) != 1 {
		return false
	}

	age := g.now().Sub(time.Unix(issued, 0))
	return age >= -time.Minute && age <= g.ttl
}

func (g *CodeGenerator) mac(s CodeSubject, issued int64) (string, error) {
	h, err := blake2b.New256(g.secret)
	if err != nil {
		return "", fmt.Errorf("confirmation code key: %w", err)
	}

	var lastLogin int64
	if s.LastLogin != nil {
		lastLogin = s.LastLogin.UTC().UnixMicro()
	}
	fmt.Fprintf(h, "%d|%s|%d|%d", s.UserID, strings.ToLower(s.Email), lastLogin, issued)

	return hex.EncodeToString(h.Sum(nil)[:macBytes]), nil
}
