package mocks

import "github.com/you/accountsvc/domain"

// MockPasswordService implements domain.PasswordService with a reversible
// "hashed_" prefix so tests can read stored hashes.
type MockPasswordService struct {
	HashFunc   func(password string) (string, error)
	VerifyFunc func(hashedPassword, password string) bool
}

var _ domain.PasswordService = (*MockPasswordService)(nil)

func NewMockPasswordService() *MockPasswordService {
	return &MockPasswordService{}
}

// Hash refuses inputs over 72 bytes like the bcrypt implementation
func (m *MockPasswordService) Hash(password string) (string, error) {
	if m.HashFunc != nil {
		return m.HashFunc(password)
	}
	if len(password) > 72 {
		return "", domain.ErrPasswordTooLong
	}
	return "hashed_" + password, nil
}

func (m *MockPasswordService) Verify(hashedPassword, password string) bool {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(hashedPassword, password)
	}
	return hashedPassword == "hashed_"+password
}
