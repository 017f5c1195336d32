// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
)

// GetCompanyByRecruiter returns the company a recruiter is associated with.
func (r *Repository) GetCompanyByRecruiter(ctx context.Context, recruiterID int64) (*models.Company, error) {
	var company models.Company
	err := r.db.GetContext(ctx, &company, `
		SELECT id, name, recruiter_id, created_at
		FROM companies WHERE recruiter_id = ?`, recruiterID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &company, nil
}

// CreateCompany inserts a company. Companies are owned by another service;
// this exists for seeding and tests.
func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	company.CreatedAt = r.now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO companies (name, recruiter_id, created_at) VALUES (?, ?, ?)`,
		company.Name, company.RecruiterID, company.CreatedAt)
	if err != nil {
		return wrapError(err)
	}
	company.ID, err = res.LastInsertId()
	return err
}
