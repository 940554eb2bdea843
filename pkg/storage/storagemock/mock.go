package storagemock

import (
	"context"

	"github.com/ardexa/solarlog/pkg/storage"
	"github.com/ardexa/solarlog/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

var _ storage.Store = (*MockStore)(nil)

func (m *MockStore) WriteCurrent(ctx context.Context, data []byte) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockStore) NewLines(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		lines, _ := args.Get(0).([]string)
		return lines, args.Error(1)
	}
	return nil, nil
}

func (m *MockStore) Append(ctx context.Context, dest types.Destination, header, line string) error {
	args := m.Called(ctx, dest, header, line)
	return args.Error(0)
}
