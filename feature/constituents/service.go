package constituents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"api-poller/core/apperr"
	"api-poller/core/lock"
	"api-poller/core/logger"
	"api-poller/core/metrics"
	"api-poller/core/reconcile"
	"api-poller/core/utils"
	"api-poller/feature/constituents/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service processes line items: it reconciles one record against stored
// state and persists the decision.
type Service struct {
	db                *gorm.DB
	locker            lock.Locker
	logger            *zap.Logger
	allowDeactivation bool
	validate          *validator.Validate

	now   func() time.Time
	newID func() string
}

// NewService creates a new constituents service. allowDeactivation is the
// default for requests that do not carry their own flag.
func NewService(db *gorm.DB, locker lock.Locker, logger *zap.Logger, allowDeactivation bool) *Service {
	return &Service{
		db:                db,
		locker:            locker,
		logger:            logger,
		allowDeactivation: allowDeactivation,
		validate:          utils.NewValidator(),
		now:               func() time.Time { return time.Now().UTC() },
		newID:             uuid.NewString,
	}
}

// ProcessLineItem reconciles one constituent and, when the item carries one,
// its accreditation. The identity is locked for the whole unit of work and
// every write happens in one transaction.
func (s *Service) ProcessLineItem(ctx context.Context, item LineItem) (*LineItemResult, error) {
	if item.ClientID == "" {
		return nil, apperr.Invalid("client_id", "is required")
	}
	if item.ExternalID == "" {
		return nil, apperr.Invalid("external_id", "is required")
	}

	l := logger.WithJob(s.logger, item.ClientID, item.BatchID, item.JobID).
		With(zap.String("external_id", item.ExternalID))

	unlock, err := s.lock(ctx, lock.Key(item.ClientID, item.ExternalID))
	if err != nil {
		return nil, err
	}
	defer s.unlock(unlock, l)

	withAccreditation := bool(item.IsAccreditation) && item.ExternalEmpID != nil && *item.ExternalEmpID != ""
	if withAccreditation {
		unlockOwner, err := s.lock(ctx, lock.OwnerKey(item.ClientID, *item.ExternalEmpID))
		if err != nil {
			return nil, err
		}
		defer s.unlock(unlockOwner, l)
	}

	now := s.now()
	constituent, terminated := reconcile.ApplyTermination(item.Constituent, now)
	record := constituent.Record()
	fp, err := reconcile.Fingerprint(record, reconcile.ConstituentPolicy)
	if err != nil {
		return nil, err
	}

	result := &LineItemResult{Fingerprint: fp}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewRepository(tx)

		byFingerprint, err := repo.FindByFingerprint(ctx, fp)
		if err != nil {
			return apperr.Collaborator("find constituent by hash", err)
		}
		var byIdentity *reconcile.StoredEntity
		if byFingerprint == nil {
			byIdentity, err = repo.FindByIdentity(ctx, item.ClientID, item.ExternalID)
			if err != nil {
				return apperr.Collaborator("find constituent by identity", err)
			}
		}

		decision := reconcile.Decide(record, byFingerprint, byIdentity, terminated)
		id := decision.TargetID
		if decision.IsInsert() {
			id = s.newID()
		}

		if err := repo.SaveConstituent(ctx, id, constituent, fp, now, decision.IsInsert()); err != nil {
			return apperr.Collaborator("save constituent", err)
		}
		changed, err := encodeChangedFields(decision.ChangedFields)
		if err != nil {
			return err
		}
		err = repo.SaveActionRecord(ctx, actionRecord(id, item, decision, fp, changed, now))
		if err != nil {
			return apperr.Collaborator("save constituent action", err)
		}

		result.ConstituentID = id
		result.Decision = decision
		metrics.Decisions.WithLabelValues("constituent", string(decision.Action)).Inc()
		l.Debug("Constituent reconciled",
			zap.String("constituent_id", id),
			zap.String("action", string(decision.Action)),
			zap.String("next_action", string(decision.NextAction)),
			zap.Strings("changed_fields", decision.ChangedFields),
		)

		if !withAccreditation {
			return nil
		}
		accResult, err := s.reconcileAccreditations(ctx, repo, l, accreditationRun{
			clientID:          item.ClientID,
			externalEmpID:     *item.ExternalEmpID,
			incoming:          []reconcile.Accreditation{item.Accreditation()},
			allowDeactivation: s.deactivation(item.AllowDeactivation),
		}, now)
		if err != nil {
			return err
		}
		result.Accreditations = accResult
		return nil
	})
	if err != nil {
		l.Error("Line item failed", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// ProcessAccreditations reconciles the full accreditation set of one owner.
func (s *Service) ProcessAccreditations(ctx context.Context, req AccreditationRequest) (*AccreditationResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, requestError(err)
	}

	l := s.logger.With(zap.String("client_id", req.ClientID), zap.String("external_emp_id", req.ExternalEmpID))

	unlock, err := s.lock(ctx, lock.OwnerKey(req.ClientID, req.ExternalEmpID))
	if err != nil {
		return nil, err
	}
	defer s.unlock(unlock, l)

	now := s.now()
	var result *AccreditationResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		res, err := s.reconcileAccreditations(ctx, repo, l, accreditationRun{
			clientID:            req.ClientID,
			externalEmpID:       req.ExternalEmpID,
			incoming:            req.Accreditations,
			allowDeactivation:   s.deactivation(req.AllowDeactivation),
			constituentID:       req.ConstituentID,
			constituentNotFound: req.ConstituentNotFound,
		}, now)
		result = res
		return err
	})
	if err != nil {
		l.Error("Accreditation line item failed", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// Detail returns the stored state of one constituent, or nil.
func (s *Service) Detail(ctx context.Context, clientID, externalID string) (*Detail, error) {
	repo := NewRepository(s.db)

	row, err := repo.Constituent(ctx, clientID, externalID)
	if err != nil {
		return nil, apperr.Collaborator("find constituent", err)
	}
	if row == nil {
		return nil, nil
	}

	detail := &Detail{Constituent: *row, Accreditations: []FinalAccreditation{}}
	if detail.ActionRecord, err = repo.ActionRecord(ctx, row.ID); err != nil {
		return nil, apperr.Collaborator("find constituent action", err)
	}
	if row.ExternalEmpID != nil && *row.ExternalEmpID != "" {
		if detail.Accreditations, err = repo.FinalAccreditations(ctx, clientID, *row.ExternalEmpID); err != nil {
			return nil, apperr.Collaborator("list accreditations", err)
		}
	}
	return detail, nil
}

type accreditationRun struct {
	clientID            string
	externalEmpID       string
	incoming            []reconcile.Accreditation
	allowDeactivation   bool
	constituentID       string
	constituentNotFound bool
}

func (s *Service) reconcileAccreditations(ctx context.Context, repo *Repository, l *zap.Logger, run accreditationRun, now time.Time) (*AccreditationResult, error) {
	existing, err := repo.ListAccreditations(ctx, run.clientID, run.externalEmpID)
	if err != nil {
		return nil, apperr.Collaborator("list accreditations", err)
	}

	plan, err := reconcile.ReconcileSet(run.incoming, existing, run.allowDeactivation)
	if err != nil {
		return nil, err
	}

	for _, skipped := range plan.Skipped {
		metrics.SkippedAccreditations.Inc()
		l.Warn("Accreditation ignored, mandatory fields missing",
			zap.Strings("missing_fields", skipped.MissingFields),
		)
	}

	for _, action := range plan.Actions {
		switch action.Action {
		case reconcile.ActionPost:
			err = repo.InsertAccreditation(ctx, s.newID(), *action.Incoming, action.Fingerprint, reconcile.ActionPost, now)
		case reconcile.ActionActivate:
			err = repo.SetAccreditationState(ctx, action.StoredID, true, reconcile.ActionActivate, now)
		case reconcile.ActionDeactivate:
			err = repo.SetAccreditationState(ctx, action.StoredID, false, reconcile.ActionDeactivate, now)
		default:
			err = fmt.Errorf("unexpected accreditation action %q", action.Action)
		}
		if err != nil {
			return nil, apperr.Collaborator("apply accreditation "+string(action.Action), err)
		}
		metrics.Decisions.WithLabelValues("accreditation", string(action.Action)).Inc()
	}

	result := &AccreditationResult{
		State:   plan.State,
		Summary: plan.Summary,
		Skipped: plan.Skipped,
	}

	if run.constituentNotFound {
		updated, err := repo.SetConstituentNextAction(ctx, run.constituentID, reconcile.ActionDelete, now)
		if err != nil {
			return nil, apperr.Collaborator("mark constituent deleted", err)
		}
		if !updated {
			l.Warn("Constituent not found for delete", zap.String("constituent_id", run.constituentID))
		}
		result.ConstituentNextAction = reconcile.ActionDelete
	}

	if result.Accreditations, err = repo.FinalAccreditations(ctx, run.clientID, run.externalEmpID); err != nil {
		return nil, apperr.Collaborator("list accreditations", err)
	}

	l.Debug("Accreditations reconciled",
		zap.String("state", string(plan.State)),
		zap.Int("posted", plan.Summary.Posted),
		zap.Int("activated", plan.Summary.Activated),
		zap.Int("deactivated", plan.Summary.Deactivated),
		zap.Int("skipped", len(plan.Skipped)),
	)
	return result, nil
}

func (s *Service) deactivation(flag *Flag) bool {
	if flag == nil {
		return s.allowDeactivation
	}
	return bool(*flag)
}

func (s *Service) lock(ctx context.Context, key string) (lock.UnlockFunc, error) {
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, apperr.Collaborator("lock "+key, err)
	}
	return unlock, nil
}

func (s *Service) unlock(unlock lock.UnlockFunc, l *zap.Logger) {
	if err := unlock(context.Background()); err != nil {
		l.Warn("Failed to release lock", zap.Error(err))
	}
}

func actionRecord(id string, item LineItem, d reconcile.Decision, fp string, changed *string, now time.Time) models.ConstituentHash {
	return models.ConstituentHash{
		ID:            id,
		BatchID:       item.BatchID,
		JobID:         item.JobID,
		NextAction:    string(d.NextAction),
		Hash:          fp,
		UpdatedAt:     now,
		ChangedFields: changed,
	}
}

// requestError turns validator errors into a ValidationError naming the
// first failing field.
func requestError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.Invalid(fe.Field(), fmt.Sprintf("failed %q rule", fe.Tag()))
	}
	return apperr.Invalid("request", err.Error())
}
