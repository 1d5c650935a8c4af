package accounting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Mugambi-md/Orion-sub000/internal/events"
)

const (
	maxCodeAttempts = 3
	maxCodeSequence = 999
)

// CreateAccount registers a new chart entry with the next code of its type.
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	in = normaliseAccountInput(in)
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	var account Account
	err := s.withCodeRetry(ctx, "create_account", func(ctx context.Context, tx TxRepository) error {
		created, err := s.createAccount(ctx, tx, in)
		account = created
		return err
	})
	if err != nil {
		return Account{}, err
	}
	ev := s.event(ctx, events.TypeAccountCreated)
	ev.AccountCode = account.Code
	s.committed(ctx, ev)
	return account, nil
}

// SeedChart creates every definition whose name is not registered yet and
// returns how many accounts were added.
func (s *Service) SeedChart(ctx context.Context, in []CreateAccountInput) (int, error) {
	defs := make([]CreateAccountInput, len(in))
	for idx, def := range in {
		defs[idx] = normaliseAccountInput(def)
		if err := defs[idx].Validate(); err != nil {
			return 0, fmt.Errorf("definition %d: %w", idx, err)
		}
	}
	var created []Account
	err := s.withCodeRetry(ctx, "seed_chart", func(ctx context.Context, tx TxRepository) error {
		created = created[:0]
		for _, def := range defs {
			exists, err := tx.AccountNameExists(ctx, def.Name)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			account, err := s.createAccount(ctx, tx, def)
			if err != nil {
				return err
			}
			created = append(created, account)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(created) > 0 {
		evs := make([]events.LedgerEvent, 0, len(created))
		for _, account := range created {
			ev := s.event(ctx, events.TypeAccountCreated)
			ev.AccountCode = account.Code
			evs = append(evs, ev)
		}
		s.committed(ctx, evs...)
	}
	return len(created), nil
}

// FindByNameOrCode resolves an account by exact code or case-insensitive name.
func (s *Service) FindByNameOrCode(ctx context.Context, value string) (Account, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Account{}, validationf("account name or code required")
	}
	var account Account
	err := s.execute(ctx, "find_account", func(ctx context.Context, tx TxRepository) error {
		var err error
		account, err = tx.FindAccount(ctx, value)
		return err
	})
	return account, err
}

// ListAccounts returns the chart ordered by code.
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	err := s.execute(ctx, "list_accounts", func(ctx context.Context, tx TxRepository) error {
		var err error
		accounts, err = tx.ListAccounts(ctx)
		return err
	})
	return accounts, err
}

// withCodeRetry reruns fn in a fresh transaction when a concurrent writer took
// the same account code.
func (s *Service) withCodeRetry(ctx context.Context, op string, fn func(context.Context, TxRepository) error) error {
	var err error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		err = s.execute(ctx, op, fn)
		if !isCodeRace(err) {
			return err
		}
	}
	return &Error{Kind: KindConcurrency, Msg: ErrCodeContention.Msg, Err: err}
}

func isCodeRace(err error) bool {
	return errors.Is(err, errCodeTaken) || errors.Is(err, ErrSerialization)
}

func (s *Service) createAccount(ctx context.Context, tx TxRepository, in CreateAccountInput) (Account, error) {
	exists, err := tx.AccountNameExists(ctx, in.Name)
	if err != nil {
		return Account{}, err
	}
	if exists {
		return Account{}, ErrDuplicateAccount
	}
	account := Account{Name: in.Name, Type: in.Type, Description: in.Description}
	if isRetainedEarnings(in) {
		account.Code = RetainedEarningsCode
	} else {
		seq, err := tx.NextAccountSequence(ctx, in.Type)
		if err != nil {
			return Account{}, err
		}
		if seq > maxCodeSequence {
			return Account{}, validationf("no account codes left for type %s", in.Type)
		}
		account.Code = FormatAccountCode(in.Type, seq)
	}
	if err := tx.InsertAccount(ctx, account); err != nil {
		return Account{}, err
	}
	if err := s.audit(ctx, tx, fmt.Sprintf("Created account %s %s (%s)", account.Code, account.Name, account.Type),
		map[string]any{"code": account.Code, "type": string(account.Type)}); err != nil {
		return Account{}, err
	}
	return account, nil
}

// ensureRetainedEarnings returns the fixed-code equity account, creating it
// when absent. An equity account already holding the name is reused; any
// other account holding it blocks the close with a validation error.
func (s *Service) ensureRetainedEarnings(ctx context.Context, tx TxRepository) (Account, error) {
	account, err := tx.GetAccountByCode(ctx, RetainedEarningsCode)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return Account{}, err
	}
	named, err := tx.FindAccount(ctx, RetainedEarningsName)
	switch {
	case err == nil && named.Type == AccountTypeEquity:
		return named, nil
	case err == nil:
		return Account{}, &Error{Kind: KindValidation, Msg: ErrReservedAccountName.Msg,
			Err: fmt.Errorf("account %s is %s; rename it before closing", named.Code, named.Type)}
	case !errors.Is(err, ErrAccountNotFound):
		return Account{}, err
	}
	account = Account{
		Code:        RetainedEarningsCode,
		Name:        RetainedEarningsName,
		Type:        AccountTypeEquity,
		Description: "Accumulated profit and loss carried from closed years",
	}
	if err := tx.InsertAccount(ctx, account); err != nil {
		return Account{}, err
	}
	if err := s.audit(ctx, tx, fmt.Sprintf("Created account %s %s (%s)", account.Code, account.Name, account.Type),
		map[string]any{"code": account.Code, "type": string(account.Type)}); err != nil {
		return Account{}, err
	}
	return account, nil
}

func isRetainedEarnings(in CreateAccountInput) bool {
	return in.Type == AccountTypeEquity && strings.EqualFold(in.Name, RetainedEarningsName)
}

func normaliseAccountInput(in CreateAccountInput) CreateAccountInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Type = AccountType(strings.ToUpper(strings.TrimSpace(string(in.Type))))
	return in
}
