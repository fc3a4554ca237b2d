package accounts

import (
	"context"
	"strings"
	"time"

	"github.com/richxcame/roundup/internal/bank"
	"github.com/richxcame/roundup/pkg/common"
	"github.com/richxcame/roundup/pkg/logger"
	"go.uber.org/zap"
)

const (
	defaultGoalTargetMinor = 10000
	goalNameLayout         = "20060102150405"
	newGoalMessage         = "No valid saving goals found, new savings goal created"
)

// BankAPI is the part of the bank client the account lookup needs
type BankAPI interface {
	GetAccounts(ctx context.Context) ([]bank.Account, error)
	ListSavingsGoals(ctx context.Context, accountID string) ([]bank.SavingsGoal, error)
	CreateSavingsGoal(ctx context.Context, accountID string, req bank.CreateSavingsGoalRequest) (string, error)
}

// Service resolves the caller's primary account and a savings goal to round up into
type Service struct {
	bank         BankAPI
	baseCurrency string
	now          func() time.Time
}

// NewService creates a new accounts service
func NewService(api BankAPI, baseCurrency string) *Service {
	return &Service{
		bank:         api,
		baseCurrency: strings.ToUpper(baseCurrency),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// GetAccountDetails returns the primary account and its active base-currency goals,
// creating a goal when there is none.
func (s *Service) GetAccountDetails(ctx context.Context) (*AccountDetails, error) {
	account, err := s.primaryAccount(ctx)
	if err != nil {
		return nil, err
	}
	log := logger.WithContext(ctx).With(logger.Account(account.AccountUID))

	goals, err := s.bank.ListSavingsGoals(ctx, account.AccountUID)
	if err != nil {
		return nil, common.NewBadGatewayError("failed to list savings goals", err)
	}

	details := &AccountDetails{
		AccountUID:   account.AccountUID,
		AccountName:  account.Name,
		SavingsGoals: make([]Goal, 0, len(goals)),
	}
	for _, g := range goals {
		if g.State != bank.GoalStateActive || g.Target == nil || !strings.EqualFold(g.Target.Currency, s.baseCurrency) {
			continue
		}
		details.SavingsGoals = append(details.SavingsGoals, Goal{UID: g.SavingsGoalUID, Name: g.Name})
	}
	if len(details.SavingsGoals) > 0 {
		log.Info("found active savings goals", zap.Int("count", len(details.SavingsGoals)))
		return details, nil
	}

	name := "SavingsGoal_" + s.now().Format(goalNameLayout)
	uid, err := s.bank.CreateSavingsGoal(ctx, account.AccountUID, bank.CreateSavingsGoalRequest{
		Name:     name,
		Currency: s.baseCurrency,
		Target:   &bank.Amount{Currency: s.baseCurrency, MinorUnits: defaultGoalTargetMinor},
	})
	if err != nil {
		return nil, common.NewBadGatewayError("failed to create savings goal", err)
	}
	log.Info("created savings goal", logger.Goal(uid), zap.String("name", name))

	details.SavingsGoals = append(details.SavingsGoals, Goal{UID: uid, Name: name})
	details.Message = newGoalMessage
	return details, nil
}

func (s *Service) primaryAccount(ctx context.Context) (*bank.Account, error) {
	accounts, err := s.bank.GetAccounts(ctx)
	if err != nil {
		return nil, common.NewBadGatewayError("failed to fetch accounts", err)
	}
	for i := range accounts {
		if accounts[i].AccountType == bank.AccountTypePrimary {
			return &accounts[i], nil
		}
	}
	return nil, common.NewNotFoundError("no primary account linked to token", nil)
}
