package logger

import (
	"github.com/stretchr/testify/mock"
)

// MockLogger is a testify mock of Logger.
type MockLogger struct {
	mock.Mock
}

var _ Logger = (*MockLogger)(nil)

func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

// NewNopMockLogger returns a MockLogger that accepts every call, handy for tests
// that only care about the behaviour around the logger.
func NewNopMockLogger() *MockLogger {
	m := &MockLogger{}
	for _, method := range []string{"Debug", "Info", "Warn", "Error", "Fatal"} {
		m.On(method, mock.Anything, mock.Anything).Return()
	}
	m.On("SetLevel", mock.Anything).Return()
	m.On("Level").Return(InfoLevel)

	return m
}

func (m *MockLogger) Debug(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Info(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Warn(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Error(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Fatal(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) SetLevel(level Level) {
	m.Called(level)
}

func (m *MockLogger) Level() Level {
	args := m.Called()
	return args.Get(0).(Level)
}

// With returns the receiver so expectations stay on one mock.
func (m *MockLogger) With(_ ...any) Logger {
	return m
}
