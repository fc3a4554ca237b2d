package bank

import (
	"context"
	"time"

	"github.com/richxcame/roundup/internal/currency"
	"github.com/richxcame/roundup/internal/roundup"
	"github.com/richxcame/roundup/pkg/logger"
	"go.uber.org/zap"
)

// RoundUpGateway adapts Client to the round-up pipeline's collaborator interfaces.
type RoundUpGateway struct {
	client *Client
}

// NewRoundUpGateway wraps client.
func NewRoundUpGateway(client *Client) *RoundUpGateway {
	return &RoundUpGateway{client: client}
}

// FetchSettledTransactions implements roundup.TransactionSource.
func (g *RoundUpGateway) FetchSettledTransactions(ctx context.Context, accountID string, from, to time.Time) ([]roundup.Transaction, error) {
	items, err := g.client.GetFeed(ctx, accountID, from, to)
	if err != nil {
		return nil, err
	}

	txns := make([]roundup.Transaction, 0, len(items))
	for _, item := range items {
		txns = append(txns, roundup.Transaction{
			Amount:    currency.Money{Currency: item.Amount.Currency, MinorUnits: item.Amount.MinorUnits},
			Direction: roundup.Direction(item.Direction),
			Timestamp: item.TransactionTime,
		})
	}

	logger.WithContext(ctx).Info("fetched settled transactions",
		logger.Account(accountID),
		zap.Int("count", len(txns)))
	return txns, nil
}

// GetAvailableBalance implements roundup.BalanceSource.
func (g *RoundUpGateway) GetAvailableBalance(ctx context.Context, accountID string) (currency.Money, error) {
	balance, err := g.client.GetEffectiveBalance(ctx, accountID)
	if err != nil {
		return currency.Money{}, err
	}
	return currency.Money{Currency: balance.Currency, MinorUnits: balance.MinorUnits}, nil
}

// Transfer implements roundup.TransferSink.
func (g *RoundUpGateway) Transfer(ctx context.Context, accountID, goalID string, amount currency.Money, transferUID string) error {
	err := g.client.AddMoney(ctx, accountID, goalID, transferUID, Amount{
		Currency:   amount.Currency,
		MinorUnits: amount.MinorUnits,
	})
	if err != nil {
		return err
	}
	logger.WithContext(ctx).Info("transferred to savings goal",
		logger.Account(accountID),
		logger.Goal(goalID),
		zap.Int64("amount_minor", amount.MinorUnits),
		zap.String("transfer_uid", transferUID))
	return nil
}
