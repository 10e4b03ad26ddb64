package ledger

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// Proof methods accepted on confirm.
const (
	MethodBiometric = "biometric"
	MethodPIN       = "pin"
	MethodOTP       = "otp"
)

// OTP codes are checked for shape only; the ledger holds the secret.
const (
	otpDigitsShort = 6
	otpDigitsLong  = 8
)

// ErrInvalidProof is wrapped by every AuthProof validation failure.
var ErrInvalidProof = errors.New("ledger: invalid auth proof")

// AuthProof is a method-tagged proof of authorization. Exactly one of the
// typed fields is set after a successful UnmarshalJSON.
type AuthProof struct {
	Method string

	Biometric *BiometricProof
	PIN       *PINProof
	OTP       *OTPProof
}

type BiometricProof struct {
	Signature string `json:"signature"`
	DeviceID  string `json:"device_id"`
	Timestamp int64  `json:"timestamp"`
}

type PINProof struct {
	HashedPIN string `json:"hashed_pin"`
	DeviceID  string `json:"device_id,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type OTPProof struct {
	OTPCode   string `json:"otp_code"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// UnmarshalJSON accepts both {"method":"pin","proof":{...}} and the flat
// {"method":"pin","hashed_pin":"..."} form.
func (p *AuthProof) UnmarshalJSON(b []byte) error {
	var head struct {
		Method string          `json:"method"`
		Proof  json.RawMessage `json:"proof"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}

	body := head.Proof
	if len(bytes.TrimSpace(body)) == 0 || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		body = b
	}

	*p = AuthProof{Method: head.Method}
	var target any
	switch head.Method {
	case MethodBiometric:
		p.Biometric = &BiometricProof{}
		target = p.Biometric
	case MethodPIN:
		p.PIN = &PINProof{}
		target = p.PIN
	case MethodOTP:
		p.OTP = &OTPProof{}
		target = p.OTP
	default:
		return fmt.Errorf("%w: unsupported method %q", ErrInvalidProof, head.Method)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	return nil
}

// MarshalJSON always emits the nested form.
func (p AuthProof) MarshalJSON() ([]byte, error) {
	var proof any
	switch p.Method {
	case MethodBiometric:
		proof = p.Biometric
	case MethodPIN:
		proof = p.PIN
	case MethodOTP:
		proof = p.OTP
	}
	return json.Marshal(struct {
		Method string `json:"method"`
		Proof  any    `json:"proof"`
	}{p.Method, proof})
}

// Validate checks the method-specific schema.
func (p AuthProof) Validate() error {
	switch p.Method {
	case MethodBiometric:
		b := p.Biometric
		if b == nil || b.Signature == "" || b.DeviceID == "" || b.Timestamp == 0 {
			return fmt.Errorf("%w: biometric proof requires signature, device_id and timestamp", ErrInvalidProof)
		}
	case MethodPIN:
		if p.PIN == nil || !isSHA256Hex(p.PIN.HashedPIN) {
			return fmt.Errorf("%w: pin proof requires a hex SHA-256 hashed_pin", ErrInvalidProof)
		}
	case MethodOTP:
		if p.OTP == nil || !isOTPCode(p.OTP.OTPCode) {
			return fmt.Errorf("%w: otp proof requires a %d or %d digit otp_code",
				ErrInvalidProof, otpDigitsShort, otpDigitsLong)
		}
	default:
		return fmt.Errorf("%w: unsupported method %q", ErrInvalidProof, p.Method)
	}
	return nil
}

func isSHA256Hex(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func isOTPCode(s string) bool {
	if len(s) != otpDigitsShort && len(s) != otpDigitsLong {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
