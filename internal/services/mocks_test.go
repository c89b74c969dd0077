package services

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/baitool/camt053/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) BalanceSnapshots(ctx context.Context, iban string, from, to civil.Date) ([]models.BalanceSnapshot, error) {
	args := m.Called(ctx, iban, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BalanceSnapshot), args.Error(1)
}

func (m *MockSource) Transactions(ctx context.Context, iban string, from, to civil.Date) ([]models.RawTransactionRecord, error) {
	args := m.Called(ctx, iban, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RawTransactionRecord), args.Error(1)
}

func (m *MockSource) Account(ctx context.Context, iban string) (models.AccountRef, error) {
	args := m.Called(ctx, iban)
	return args.Get(0).(models.AccountRef), args.Error(1)
}

type MockSequence struct {
	mock.Mock
}

func (m *MockSequence) Next(ctx context.Context, iban string, from, to civil.Date) (int, error) {
	args := m.Called(ctx, iban, from, to)
	return args.Int(0), args.Error(1)
}

type MockBuilder struct {
	mock.Mock
}

func (m *MockBuilder) BuildStatement(doc models.StatementDocument) ([]byte, error) {
	args := m.Called(doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
