package mocks

import (
	"io"

	"github.com/stretchr/testify/mock"
)

// MockRawArchive implements storage.RawArchive
type MockRawArchive struct {
	mock.Mock
}

// Save stores a raw message and returns the relative path
func (m *MockRawArchive) Save(r io.Reader) (string, error) {
	args := m.Called(r)
	return args.String(0), args.Error(1)
}

// Get retrieves an archived message by its path
func (m *MockRawArchive) Get(rawPath string) (io.ReadCloser, error) {
	args := m.Called(rawPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// Delete removes an archived message by its path
func (m *MockRawArchive) Delete(rawPath string) error {
	args := m.Called(rawPath)
	return args.Error(0)
}
