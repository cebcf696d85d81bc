package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Resolver maps logical roles onto concrete chart of accounts entries.
type Resolver struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewResolver builds Resolver.
func NewResolver(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Resolver {
	return &Resolver{repo: repo, audit: audit, logger: logger}
}

// Resolve returns the account for a role, creating it under the correct
// parent group when absent.
func (r *Resolver) Resolve(ctx context.Context, role Role) (Account, error) {
	spec, ok := role.Spec()
	if !ok {
		return Account{}, &ConfigurationError{Roles: []Role{role}}
	}
	acc, err := r.repo.GetByCode(ctx, spec.Code)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return Account{}, err
	}
	created, err := r.EnsureAll(ctx, []Role{role})
	if err != nil {
		return Account{}, err
	}
	if len(created) == 1 {
		return created[0], nil
	}
	return r.repo.GetByCode(ctx, spec.Code)
}

// ResolveAll resolves every role without creating anything. Missing roles
// are aggregated into a single ConfigurationError so the caller can run
// EnsureAll and retry the original operation.
func (r *Resolver) ResolveAll(ctx context.Context, roles ...Role) (map[Role]Account, error) {
	resolved := make(map[Role]Account, len(roles))
	var missing []Role
	for _, role := range roles {
		spec, ok := role.Spec()
		if !ok {
			missing = append(missing, role)
			continue
		}
		acc, err := r.repo.GetByCode(ctx, spec.Code)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				missing = append(missing, role)
				continue
			}
			return nil, err
		}
		resolved[role] = acc
	}
	if len(missing) > 0 {
		return nil, &ConfigurationError{Roles: missing}
	}
	return resolved, nil
}

// EnsureAll creates the accounts for any missing roles and returns the newly
// created ones, so callers can inform the user before a retry.
func (r *Resolver) EnsureAll(ctx context.Context, roles []Role) ([]Account, error) {
	var created []Account
	err := r.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created = created[:0]
		for _, role := range roles {
			spec, ok := role.Spec()
			if !ok {
				return &ConfigurationError{Roles: []Role{role}}
			}
			if _, err := tx.GetByCode(ctx, spec.Code); err == nil {
				continue
			} else if !errors.Is(err, ErrAccountNotFound) {
				return err
			}
			parent, err := r.ensureParent(ctx, tx, spec.Code, role)
			if err != nil {
				return err
			}
			acc := Account{
				Code:           spec.Code,
				Name:           spec.Name,
				Type:           spec.Type,
				Nature:         NatureOf(spec.Type),
				ParentID:       &parent.ID,
				CashEquivalent: spec.CashEquivalent,
				IsActive:       true,
			}
			inserted, err := tx.Insert(ctx, acc)
			if err != nil {
				return err
			}
			created = append(created, inserted)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, acc := range created {
		if r.audit != nil {
			_ = r.audit.Record(ctx, shared.AuditLog{
				Action:   "accounts.create",
				Entity:   "account",
				EntityID: acc.Code,
				Meta:     map[string]any{"name": acc.Name, "type": string(acc.Type)},
			})
		}
	}
	return created, nil
}

// EnsureSystemAccounts is the bootstrap step that materialises the whole
// role table. Idempotent; returns only what was newly created.
func (r *Resolver) EnsureSystemAccounts(ctx context.Context) ([]Account, error) {
	return r.EnsureAll(ctx, AllRoles())
}

// List exposes the chart for reporting layers.
func (r *Resolver) List(ctx context.Context) ([]Account, error) {
	return r.repo.List(ctx)
}

// ensureParent walks the code prefixes from longest to shortest looking for
// an existing group to hang the account from. Only the single-digit root
// groups are auto-created; a missing intermediate group that cannot be
// derived is a configuration problem.
func (r *Resolver) ensureParent(ctx context.Context, tx TxRepository, code string, role Role) (Account, error) {
	for l := len(code) - 1; l >= 1; l-- {
		prefix := code[:l]
		acc, err := tx.GetByCode(ctx, prefix)
		if err == nil {
			if !acc.IsGroup {
				continue
			}
			return acc, nil
		}
		if !errors.Is(err, ErrAccountNotFound) {
			return Account{}, err
		}
	}
	root := code[:1]
	name, ok := rootGroups[root]
	if !ok {
		return Account{}, &ConfigurationError{Roles: []Role{role}}
	}
	accType, ok := TypeFromCode(root)
	if !ok {
		return Account{}, &ConfigurationError{Roles: []Role{role}}
	}
	group := Account{
		Code:     root,
		Name:     name,
		Type:     accType,
		Nature:   NatureOf(accType),
		IsGroup:  true,
		IsActive: true,
	}
	inserted, err := tx.Insert(ctx, group)
	if err != nil {
		if isUniqueViolation(err) {
			return tx.GetByCode(ctx, root)
		}
		return Account{}, err
	}
	if r.logger != nil {
		r.logger.Info("created root account group", slog.String("code", root), slog.String("name", name))
	}
	return inserted, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Describe renders a role list for user facing messages.
func Describe(roles []Role) string {
	parts := make([]string, 0, len(roles))
	for _, role := range roles {
		if spec, ok := role.Spec(); ok {
			parts = append(parts, fmt.Sprintf("%s (code %s)", role, spec.Code))
			continue
		}
		parts = append(parts, string(role))
	}
	return strings.Join(parts, ", ")
}
