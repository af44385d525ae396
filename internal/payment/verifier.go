package payment

import (
    "crypto/hmac"
    "crypto/sha256"
    "encoding/hex"
    "errors"
    "strconv"
    "strings"
    "time"
)

// SignatureHeader is the HTTP header carrying the webhook signature.
const SignatureHeader = "X-Payment-Signature"

// ErrSignatureInvalid is returned for a missing, malformed, stale or
// mismatching webhook signature. The notification must be rejected
// without touching any state; the sender retries per its own policy
// and the settlement path is idempotent, so rejection is always safe.
var ErrSignatureInvalid = errors.New("invalid signature")

// DefaultTolerance bounds how old a signed timestamp may be before the
// notification is rejected as a possible replay.
const DefaultTolerance = 5 * time.Minute

// Verifier checks the authenticity of an inbound notification given
// its raw body and the value of the signature header.
type Verifier interface {
    Verify(payload []byte, sigHeader string) error
}

// HMACVerifier implements the processor's signature scheme: the header
// carries "t=<unix>,v1=<hex>" where v1 is an HMAC-SHA256 of
// "<unix>.<raw body>" under the shared webhook secret.
type HMACVerifier struct {
    secret    []byte
    tolerance time.Duration
    now       func() time.Time // injectable for tests
}

// NewHMACVerifier builds a verifier for the given shared secret. A
// non-positive tolerance falls back to DefaultTolerance.
func NewHMACVerifier(secret string, tolerance time.Duration) *HMACVerifier {
    if tolerance <= 0 {
        tolerance = DefaultTolerance
    }
    return &HMACVerifier{
        secret:    []byte(secret),
        tolerance: tolerance,
        now:       time.Now,
    }
}

// Verify checks the signature header against the payload. Every
// failure mode collapses into ErrSignatureInvalid on purpose: the
// sender learns nothing about why its delivery was rejected.
func (v *HMACVerifier) Verify(payload []byte, sigHeader string) error {
    ts, sig, err := parseSigHeader(sigHeader)
    if err != nil {
        return ErrSignatureInvalid
    }
    age := v.now().UTC().Sub(time.Unix(ts, 0))
    if age < 0 {
        age = -age
    }
    if age > v.tolerance {
        return ErrSignatureInvalid
    }
    if !hmac.Equal(sig, v.sign(ts, payload)) {
        return ErrSignatureInvalid
    }
    return nil
}

// sign computes the expected MAC over "<ts>.<payload>".
func (v *HMACVerifier) sign(ts int64, payload []byte) []byte {
    mac := hmac.New(sha256.New, v.secret)
    mac.Write([]byte(strconv.FormatInt(ts, 10)))
    mac.Write([]byte("."))
    mac.Write(payload)
    return mac.Sum(nil)
}

// parseSigHeader splits "t=<unix>,v1=<hex>" into its parts. Element
// order does not matter; unknown elements are ignored so the scheme
// can evolve.
func parseSigHeader(header string) (ts int64, sig []byte, err error) {
    var haveTS, haveSig bool
    for _, part := range strings.Split(header, ",") {
        k, val, ok := strings.Cut(strings.TrimSpace(part), "=")
        if !ok {
            continue
        }
        switch k {
        case "t":
            ts, err = strconv.ParseInt(val, 10, 64)
            if err != nil {
                return 0, nil, err
            }
            haveTS = true
        case "v1":
            sig, err = hex.DecodeString(val)
            if err != nil {
                return 0, nil, err
            }
            haveSig = true
        }
    }
    if !haveTS || !haveSig {
        return 0, nil, errors.New("incomplete signature header")
    }
    return ts, sig, nil
}
