package constituents

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"api-poller/core/reconcile"
	"api-poller/feature/constituents/models"

	"gorm.io/gorm"
)

// Repository reads and writes reconciled state. All methods run on the
// handle it was created with, so a Repository made from a transaction keeps
// every call inside it.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a repository over db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByFingerprint returns the constituent whose current fingerprint is fp,
// with the next action of its action record.
func (r *Repository) FindByFingerprint(ctx context.Context, fp string) (*reconcile.StoredEntity, error) {
	var row models.Constituent
	err := r.db.WithContext(ctx).Where("hash = ?", fp).Order("updated_at DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.stored(ctx, row)
}

// FindByIdentity returns the constituent with the given client and external id.
func (r *Repository) FindByIdentity(ctx context.Context, clientID, externalID string) (*reconcile.StoredEntity, error) {
	row, err := r.Constituent(ctx, clientID, externalID)
	if err != nil || row == nil {
		return nil, err
	}
	return r.stored(ctx, *row)
}

// Constituent returns the stored row of one identity, or nil.
func (r *Repository) Constituent(ctx context.Context, clientID, externalID string) (*models.Constituent, error) {
	var row models.Constituent
	err := r.db.WithContext(ctx).
		Where("external_id = ? AND client_id = ?", externalID, clientID).
		Order("updated_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ActionRecord returns the action record of a constituent, or nil.
func (r *Repository) ActionRecord(ctx context.Context, id string) (*models.ConstituentHash, error) {
	var row models.ConstituentHash
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) stored(ctx context.Context, row models.Constituent) (*reconcile.StoredEntity, error) {
	entity := &reconcile.StoredEntity{
		ID:          row.ID,
		Fields:      constituentRecord(row),
		Fingerprint: row.Hash,
		Active:      row.Active,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	action, err := r.ActionRecord(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	if action != nil {
		entity.NextAction = reconcile.Action(action.NextAction)
	}
	return entity, nil
}

// SaveConstituent inserts or fully updates a constituent row. c is expected
// to have gone through reconcile.ApplyTermination, so a nil Active belongs to
// a constituent whose termination date is still ahead and is stored as active.
func (r *Repository) SaveConstituent(ctx context.Context, id string, c reconcile.Constituent, fp string, now time.Time, insert bool) error {
	row := models.Constituent{
		ID:            id,
		UpdatedAt:     now,
		ExternalEmpID: c.ExternalEmpID,
		FullName:      c.FullName,
		ClientID:      c.ClientID,
		MobileNumber:  c.MobileNumber,
		Email:         c.Email,
		ExternalID:    c.ExternalID,
		Active:        c.Active == nil || *c.Active,
		Hash:          fp,
		BirthDate:     c.BirthDate,
		Location:      c.Location,
		ManagerEmail:  c.ManagerEmail,
	}
	if insert {
		row.CreatedAt = now
		return r.db.WithContext(ctx).Create(&row).Error
	}
	return r.db.WithContext(ctx).Model(&models.Constituent{}).Where("id = ?", id).Updates(map[string]any{
		"updated_at":      row.UpdatedAt,
		"external_emp_id": row.ExternalEmpID,
		"full_name":       row.FullName,
		"client_id":       row.ClientID,
		"mobile_number":   row.MobileNumber,
		"email":           row.Email,
		"external_id":     row.ExternalID,
		"active":          row.Active,
		"hash":            row.Hash,
		"birth_date":      row.BirthDate,
		"location":        row.Location,
		"manager_email":   row.ManagerEmail,
	}).Error
}

// SaveActionRecord inserts or replaces the action record of a constituent.
func (r *Repository) SaveActionRecord(ctx context.Context, rec models.ConstituentHash) error {
	return r.db.WithContext(ctx).Save(&rec).Error
}

// SetConstituentNextAction overwrites only the next action of a constituent.
// It reports whether a record was updated.
func (r *Repository) SetConstituentNextAction(ctx context.Context, id string, action reconcile.Action, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ConstituentHash{}).Where("id = ?", id).Updates(map[string]any{
		"next_action": string(action),
		"updated_at":  now,
	})
	return res.RowsAffected > 0, res.Error
}

// ListAccreditations returns the stored accreditations of one owner.
func (r *Repository) ListAccreditations(ctx context.Context, clientID, externalEmpID string) ([]reconcile.StoredAccreditation, error) {
	var rows []models.Accreditation
	err := r.db.WithContext(ctx).
		Select("id", "hash", "active").
		Where("external_emp_id = ? AND client_id = ?", externalEmpID, clientID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]reconcile.StoredAccreditation, 0, len(rows))
	for _, row := range rows {
		out = append(out, reconcile.StoredAccreditation{ID: row.ID, Fingerprint: row.Hash, Active: row.Active})
	}
	return out, nil
}

// InsertAccreditation stores a new active accreditation and its action record.
func (r *Repository) InsertAccreditation(ctx context.Context, id string, a reconcile.Accreditation, fp string, action reconcile.Action, now time.Time) error {
	row := models.Accreditation{
		ID:                      id,
		Identifier:              a.CertificateNumber,
		Type:                    a.TypeName,
		MappedType:              a.MappedType,
		Expiry:                  a.DateExpire,
		FullName:                a.FullName,
		ExternalEmpID:           a.ExternalEmpID,
		ExternalID:              a.ExternalID,
		ExternalQualificationID: a.QualificationGUID,
		ClientID:                a.ClientID,
		Hash:                    fp,
		CreatedAt:               now,
		UpdatedAt:               now,
		Active:                  true,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&models.AccreditationHash{
		ID:            id,
		ExternalEmpID: a.ExternalEmpID,
		NextAction:    string(action),
		UpdatedAt:     now,
		Hash:          fp,
	}).Error
}

// SetAccreditationState flips the active flag of an accreditation and records
// the action that did it.
func (r *Repository) SetAccreditationState(ctx context.Context, id string, active bool, action reconcile.Action, now time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.AccreditationHash{}).Where("id = ?", id).Updates(map[string]any{
		"next_action": string(action),
		"updated_at":  now,
	}).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&models.Accreditation{}).Where("id = ?", id).Updates(map[string]any{
		"active":     active,
		"updated_at": now,
	}).Error
}

// FinalAccreditation is a stored accreditation with its current next action.
type FinalAccreditation struct {
	models.Accreditation
	NextAction string `json:"next_action,omitempty"`
}

// FinalAccreditations lists the accreditations of one owner with the next
// action of each.
func (r *Repository) FinalAccreditations(ctx context.Context, clientID, externalEmpID string) ([]FinalAccreditation, error) {
	var rows []models.Accreditation
	err := r.db.WithContext(ctx).
		Where("external_emp_id = ? AND client_id = ?", externalEmpID, clientID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []FinalAccreditation{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var actions []models.AccreditationHash
	if err := r.db.WithContext(ctx).Select("id", "next_action").Where("id IN ?", ids).Find(&actions).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]string, len(actions))
	for _, a := range actions {
		byID[a.ID] = a.NextAction
	}

	out := make([]FinalAccreditation, 0, len(rows))
	for _, row := range rows {
		out = append(out, FinalAccreditation{Accreditation: row, NextAction: byID[row.ID]})
	}
	return out, nil
}

// constituentRecord renders a stored row in the same shape as an incoming
// Constituent record.
func constituentRecord(row models.Constituent) reconcile.Record {
	active := row.Active
	return reconcile.Constituent{
		ExternalEmpID: row.ExternalEmpID,
		FullName:      row.FullName,
		ClientID:      row.ClientID,
		MobileNumber:  row.MobileNumber,
		Email:         row.Email,
		ExternalID:    row.ExternalID,
		Active:        &active,
		ManagerEmail:  row.ManagerEmail,
		BirthDate:     row.BirthDate,
		Location:      row.Location,
	}.Record()
}

// encodeChangedFields renders a changed field list as stored in
// changed_fields. Nil stays NULL.
func encodeChangedFields(fields []string) (*string, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}
