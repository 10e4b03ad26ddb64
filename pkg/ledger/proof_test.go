package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const validPIN = "03ac674216f3e15c761ee1a5e255f067953623c8b388b4459e13f978d7c846f4"

func TestAuthProof_Validate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{"pin flat", `{"method":"pin","hashed_pin":"` + validPIN + `"}`, true},
		{"pin nested", `{"method":"pin","proof":{"hashed_pin":"` + validPIN + `"}}`, true},
		{"pin not hex", `{"method":"pin","hashed_pin":"1234"}`, false},
		{"pin missing", `{"method":"pin"}`, false},
		{"biometric", `{"method":"biometric","signature":"sig","device_id":"d1","timestamp":1700000000}`, true},
		{"biometric no device", `{"method":"biometric","signature":"sig","timestamp":1700000000}`, false},
		{"otp six", `{"method":"otp","otp_code":"123456"}`, true},
		{"otp eight", `{"method":"otp","proof":{"otp_code":"12345678"}}`, true},
		{"otp seven", `{"method":"otp","otp_code":"1234567"}`, false},
		{"otp letters", `{"method":"otp","otp_code":"12a456"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p AuthProof
			require.NoError(t, json.Unmarshal([]byte(tt.in), &p))
			err := p.Validate()
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrInvalidProof)
			}
		})
	}
}

func TestAuthProof_OTPLengthMessage(t *testing.T) {
	err := AuthProof{Method: MethodOTP, OTP: &OTPProof{OTPCode: "12345"}}.Validate()
	require.ErrorIs(t, err, ErrInvalidProof)
	require.Contains(t, err.Error(), "6 or 8 digit otp_code")
}

func TestAuthProof_UnknownMethod(t *testing.T) {
	var p AuthProof
	err := json.Unmarshal([]byte(`{"method":"sms","code":"1"}`), &p)
	require.ErrorIs(t, err, ErrInvalidProof)

	require.ErrorIs(t, AuthProof{}.Validate(), ErrInvalidProof)
}

func TestAuthProof_MarshalNested(t *testing.T) {
	p := AuthProof{Method: MethodPIN, PIN: &PINProof{HashedPIN: validPIN}}
	b, err := json.Marshal(p)
	require.NoError(t, err)
	require.JSONEq(t, `{"method":"pin","proof":{"hashed_pin":"`+validPIN+`"}}`, string(b))
}

func TestProcessingFee(t *testing.T) {
	require.Equal(t, 2.99, ProcessingFee(10))
	require.Equal(t, 2.99, ProcessingFee(149.5))
	require.Equal(t, 100.0, ProcessingFee(5000))
	require.Equal(t, 3.09, ProcessingFee(154.321))
}
