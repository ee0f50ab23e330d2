package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"wotc/internal"
)

func (d *DB) CreateFormType(name, description, rulesJSON string) (internal.FormTypeRecord, error) {
	id := uuid.NewString()
	_, err := d.conn.Exec(`
INSERT INTO form_types (id, name, description, identification_rules)
VALUES (?, ?, ?, ?)
`, id, name, description, rulesJSON)
	if err != nil {
		return internal.FormTypeRecord{}, fmt.Errorf("create form type %q: %w", name, err)
	}
	return d.getFormType(`WHERE id = ?`, id)
}

func (d *DB) UpdateFormType(id, name, description, rulesJSON string) (internal.FormTypeRecord, error) {
	result, err := d.conn.Exec(`
UPDATE form_types
SET name = ?, description = ?, identification_rules = ?, updatedAt = CURRENT_TIMESTAMP
WHERE id = ?
`, name, description, rulesJSON, id)
	if err != nil {
		return internal.FormTypeRecord{}, err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return internal.FormTypeRecord{}, fmt.Errorf("form type %s: %w", id, ErrNotFound)
	}
	return d.getFormType(`WHERE id = ?`, id)
}

// DeleteFormType removes a catalog entry. Entries still referenced by a
// classification are refused with ErrFormTypeInUse.
func (d *DB) DeleteFormType(id string) error {
	var refs int
	if err := d.conn.QueryRow(`SELECT COUNT(*) FROM form_classifications WHERE formTypeId = ?`, id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return fmt.Errorf("form type %s: %w", id, ErrFormTypeInUse)
	}

	result, err := d.conn.Exec(`DELETE FROM form_types WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("form type %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListFormTypes returns the catalog ordered by name, which is also the
// order ties are broken in during classification.
func (d *DB) ListFormTypes() ([]internal.FormTypeRecord, error) {
	rows, err := d.conn.Query(`
SELECT id, name, description, identification_rules, updatedAt
FROM form_types
ORDER BY name ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.FormTypeRecord
	for rows.Next() {
		var r internal.FormTypeRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.RulesJSON, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) GetFormTypeByName(name string) (*internal.FormTypeRecord, error) {
	r, err := d.getFormType(`WHERE name = ?`, name)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (d *DB) getFormType(where string, arg any) (internal.FormTypeRecord, error) {
	var r internal.FormTypeRecord
	err := d.conn.QueryRow(`
SELECT id, name, description, identification_rules, updatedAt
FROM form_types `+where, arg).Scan(&r.ID, &r.Name, &r.Description, &r.RulesJSON, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.FormTypeRecord{}, ErrNotFound
	}
	return r, err
}
