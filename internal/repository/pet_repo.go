package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"unsent/internal/domain"
)

// PgPetRepository guarda una mascota por usuario.
type PgPetRepository struct {
	pool *pgxpool.Pool
}

func NewPgPetRepository(pool *pgxpool.Pool) *PgPetRepository {
	return &PgPetRepository{pool: pool}
}

func (r *PgPetRepository) Upsert(ctx context.Context, pet domain.PetProfile) error {
	const query = `
		INSERT INTO pet_profiles (user_id, name, species, breed, age_years, notes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET name = EXCLUDED.name, species = EXCLUDED.species, breed = EXCLUDED.breed,
		    age_years = EXCLUDED.age_years, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query,
		pet.UserID,
		pet.Name,
		pet.Species,
		pet.Breed,
		pet.AgeYears,
		pet.Notes,
		pet.UpdatedAt,
	)
	return err
}

func (r *PgPetRepository) GetByUserID(ctx context.Context, userID string) (domain.PetProfile, error) {
	const query = `
		SELECT user_id, name, species, breed, age_years, notes, updated_at
		FROM pet_profiles
		WHERE user_id = $1
	`
	var pet domain.PetProfile
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&pet.UserID,
		&pet.Name,
		&pet.Species,
		&pet.Breed,
		&pet.AgeYears,
		&pet.Notes,
		&pet.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PetProfile{}, ErrNotFound
	}
	return pet, err
}
