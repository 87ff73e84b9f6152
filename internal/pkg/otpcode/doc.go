// Package otpcode generates one-time passcodes.
//
// Codes are drawn from crypto/rand so they cannot be predicted from earlier
// output. Two alphabets are supported: digits only, and upper-case letters
// plus digits.
package otpcode
