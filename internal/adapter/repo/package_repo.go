package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"logoforge/internal/domain"
	"logoforge/internal/infra"
	"logoforge/internal/sqlinline"
)

// PackageRepositoryPG implements domain.PackageRepository. The package is
// stored as a JSON document next to a few indexed columns.
type PackageRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewPackageRepository constructs a package repository.
func NewPackageRepository(sql infra.SQLExecutor) *PackageRepositoryPG {
	return &PackageRepositoryPG{sql: sql}
}

// Save upserts the package by id.
func (r *PackageRepositoryPG) Save(ctx context.Context, pkg *domain.AssetPackage) error {
	if pkg == nil || pkg.ID == "" {
		return errors.New("package id is required")
	}
	raw, err := json.Marshal(pkg)
	if err != nil {
		return fmt.Errorf("marshal package: %w", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QUpsertAssetPackage,
		pkg.ID,
		pkg.Metadata.BrandName,
		pkg.Metadata.RequesterID,
		pkg.ZipURL,
		pkg.Succeeded(),
		raw,
		pkg.CreatedAt,
	)
	return err
}

// GetByID loads a package or returns domain.ErrNotFound.
func (r *PackageRepositoryPG) GetByID(ctx context.Context, id string) (*domain.AssetPackage, error) {
	var raw []byte
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectAssetPackageByID, id).Scan(&raw); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var pkg domain.AssetPackage
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return nil, fmt.Errorf("decode package %s: %w", id, err)
	}
	return &pkg, nil
}

var _ domain.PackageRepository = (*PackageRepositoryPG)(nil)
