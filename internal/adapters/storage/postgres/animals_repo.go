package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"herdbook/internal/domain/animals"

	"github.com/shopspring/decimal"
)

const animalColumns = `
	id, owner_user_id,
	type, breed, number, name, gender, color, status,
	dam_id, sire_id,
	dob, dod, date_purchased, date_sold,
	purch_cost, sell_price,
	for_sale, pending_completion,
	notes, meds, purch_info, sell_info, reg_num, reg_name,
	image,
	created_at, updated_at`

type AnimalsRepo struct {
	db *sql.DB
}

func NewAnimalsRepo(db *sql.DB) *AnimalsRepo {
	return &AnimalsRepo{db: db}
}

func (r *AnimalsRepo) Create(ctx context.Context, a animals.Animal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO animals (`+animalColumns+`
		) VALUES (
			$1,$2,
			$3,$4,$5,$6,$7,$8,$9,
			$10,$11,
			$12,$13,$14,$15,
			$16,$17,
			$18,$19,
			$20,$21,$22,$23,$24,$25,
			$26,
			$27,$28
		)
	`,
		a.ID,
		a.OwnerUserID,
		string(a.Type),
		a.Breed,
		a.Number,
		a.Name,
		string(a.Gender),
		a.Color,
		string(a.Status),
		toNullRef(a.DamID),
		toNullRef(a.SireID),
		toNullDate(a.DOB),
		toNullDate(a.DOD),
		toNullDate(a.DatePurchased),
		toNullDate(a.DateSold),
		toNullMoney(a.PurchaseCost),
		toNullMoney(a.SellPrice),
		string(a.ForSale),
		a.PendingCompletion,
		a.Notes,
		a.Meds,
		a.PurchaseInfo,
		a.SellInfo,
		a.RegNumber,
		a.RegName,
		a.Image,
		a.CreatedAt,
		a.UpdatedAt,
	)
	return err
}

func (r *AnimalsRepo) GetByOwner(ctx context.Context, ownerUserID, id string) (animals.Animal, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	id = strings.TrimSpace(id)
	if ownerUserID == "" || id == "" {
		return animals.Animal{}, animals.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT`+animalColumns+`
		FROM animals
		WHERE owner_user_id = $1 AND id = $2
	`, ownerUserID, id)

	a, err := scanAnimal(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return animals.Animal{}, animals.ErrNotFound
		}
		return animals.Animal{}, err
	}
	return a, nil
}

func (r *AnimalsRepo) Update(ctx context.Context, a animals.Animal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE animals
		SET
			type = $3,
			breed = $4,
			number = $5,
			name = $6,
			gender = $7,
			color = $8,
			status = $9,
			dam_id = $10,
			sire_id = $11,
			dob = $12,
			dod = $13,
			date_purchased = $14,
			date_sold = $15,
			purch_cost = $16,
			sell_price = $17,
			for_sale = $18,
			pending_completion = $19,
			notes = $20,
			meds = $21,
			purch_info = $22,
			sell_info = $23,
			reg_num = $24,
			reg_name = $25,
			image = $26,
			updated_at = $27
		WHERE owner_user_id = $1 AND id = $2
	`,
		a.OwnerUserID,
		a.ID,
		string(a.Type),
		a.Breed,
		a.Number,
		a.Name,
		string(a.Gender),
		a.Color,
		string(a.Status),
		toNullRef(a.DamID),
		toNullRef(a.SireID),
		toNullDate(a.DOB),
		toNullDate(a.DOD),
		toNullDate(a.DatePurchased),
		toNullDate(a.DateSold),
		toNullMoney(a.PurchaseCost),
		toNullMoney(a.SellPrice),
		string(a.ForSale),
		a.PendingCompletion,
		a.Notes,
		a.Meds,
		a.PurchaseInfo,
		a.SellInfo,
		a.RegNumber,
		a.RegName,
		a.Image,
		a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return animals.ErrNotFound
	}
	return nil
}

func (r *AnimalsRepo) Delete(ctx context.Context, ownerUserID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM animals
		WHERE owner_user_id = $1 AND id = $2
	`, ownerUserID, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return animals.ErrNotFound
	}
	return nil
}

func (r *AnimalsRepo) UpdateImage(ctx context.Context, ownerUserID, id, filename string) error {
	// Un solo statement: o queda el filename nuevo o queda el anterior.
	res, err := r.db.ExecContext(ctx, `
		UPDATE animals
		SET image = $3, updated_at = NOW()
		WHERE owner_user_id = $1 AND id = $2
	`, ownerUserID, id, filename)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return animals.ErrNotFound
	}
	return nil
}

func (r *AnimalsRepo) FindByIDs(ctx context.Context, ownerUserID string, ids []string) (map[string]animals.Animal, error) {
	out := make(map[string]animals.Animal, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]string, 0, len(ids))
	args := []any{ownerUserID}
	for i, id := range ids {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT`+animalColumns+`
		FROM animals
		WHERE owner_user_id = $1 AND id IN (`+strings.Join(placeholders, ",")+`)
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAnimal(rows)
		if err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

func (r *AnimalsRepo) ListOffspring(ctx context.Context, ownerUserID, parentID string) ([]animals.Animal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT`+animalColumns+`
		FROM animals
		WHERE owner_user_id = $1 AND (dam_id = $2 OR sire_id = $2)
		ORDER BY dob DESC NULLS LAST, name ASC
	`, ownerUserID, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAnimals(rows)
}

func (r *AnimalsRepo) List(ctx context.Context, ownerUserID string, f animals.ListFilter) ([]animals.Animal, int, error) {
	// WHERE compartido entre el count y la página: valores siempre por
	// placeholder; los identificadores de orden salen solo de la whitelist.
	where := strings.Builder{}
	where.WriteString(" WHERE owner_user_id = $1")

	args := []any{ownerUserID}
	argN := 2

	if f.Type != "" {
		where.WriteString(fmt.Sprintf(" AND type = $%d", argN))
		args = append(args, string(f.Type))
		argN++
	}

	if strings.TrimSpace(f.Query) != "" {
		where.WriteString(fmt.Sprintf(
			" AND (name ILIKE $%d OR number ILIKE $%d OR breed ILIKE $%d OR status ILIKE $%d)",
			argN, argN, argN, argN,
		))
		args = append(args, "%"+strings.TrimSpace(f.Query)+"%")
		argN++
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM animals"+where.String(), args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, desc := f.Normalize()
	dir := "ASC"
	if desc {
		dir = "DESC"
	}

	page := f.PageOrFirst()
	query := fmt.Sprintf(
		"SELECT%s FROM animals%s ORDER BY %s %s, id ASC LIMIT $%d OFFSET $%d",
		animalColumns, where.String(), col, dir, argN, argN+1,
	)
	args = append(args, animals.PageSize, (page-1)*animals.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items, err := collectAnimals(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *AnimalsRepo) ListBreeders(ctx context.Context, ownerUserID string, typ animals.Type) ([]animals.Breeder, error) {
	// Un solo GROUP BY sobre dam_id/sire_id unidos, no un COUNT por candidato.
	query := `
		SELECT` + prefixColumns("a") + `, b.cnt
		FROM animals a
		JOIN (
			SELECT parent_id, COUNT(*) AS cnt FROM (
				SELECT dam_id AS parent_id FROM animals WHERE owner_user_id = $1 AND dam_id IS NOT NULL
				UNION ALL
				SELECT sire_id FROM animals WHERE owner_user_id = $1 AND sire_id IS NOT NULL
			) p
			GROUP BY parent_id
		) b ON b.parent_id = a.id
		WHERE a.owner_user_id = $1`

	args := []any{ownerUserID}
	if typ != "" {
		query += " AND a.type = $2"
		args = append(args, string(typ))
	}
	query += " ORDER BY a.name ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]animals.Breeder, 0)
	for rows.Next() {
		var b animals.Breeder
		if err := scanAnimalInto(rows, &b.Animal, &b.OffspringCount); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *AnimalsRepo) ListNonBreeders(ctx context.Context, ownerUserID string, typ animals.Type) ([]animals.Animal, error) {
	query := `
		SELECT` + animalColumns + `
		FROM animals a
		WHERE a.owner_user_id = $1 AND a.status = $2
		AND NOT EXISTS (
			SELECT 1 FROM animals c
			WHERE c.owner_user_id = $1 AND (c.dam_id = a.id OR c.sire_id = a.id)
		)`

	args := []any{ownerUserID, string(animals.StatusAlive)}
	if typ != "" {
		query += " AND a.type = $3"
		args = append(args, string(typ))
	}
	query += " ORDER BY a.name ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAnimals(rows)
}

func (r *AnimalsRepo) ListAlive(ctx context.Context, ownerUserID string, typ animals.Type) ([]animals.Animal, error) {
	query := `
		SELECT` + animalColumns + `
		FROM animals
		WHERE owner_user_id = $1 AND status = $2`

	args := []any{ownerUserID, string(animals.StatusAlive)}
	if typ != "" {
		query += " AND type = $3"
		args = append(args, string(typ))
	}
	query += " ORDER BY type ASC, name ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAnimals(rows)
}

func (r *AnimalsRepo) SelectPurchases(ctx context.Context, ownerUserID string, from, to time.Time, typ animals.Type) ([]animals.Animal, error) {
	return r.selectByDate(ctx, "date_purchased", ownerUserID, from, to, typ)
}

func (r *AnimalsRepo) SelectSales(ctx context.Context, ownerUserID string, from, to time.Time, typ animals.Type) ([]animals.Animal, error) {
	return r.selectByDate(ctx, "date_sold", ownerUserID, from, to, typ)
}

// selectByDate trae los animales cuyo dateCol cae en [from, to].
// dateCol es interno (date_purchased | date_sold), nunca input del usuario.
func (r *AnimalsRepo) selectByDate(ctx context.Context, dateCol, ownerUserID string, from, to time.Time, typ animals.Type) ([]animals.Animal, error) {
	query := fmt.Sprintf(`
		SELECT%s
		FROM animals
		WHERE owner_user_id = $1 AND %s IS NOT NULL AND %s BETWEEN $2 AND $3`,
		animalColumns, dateCol, dateCol,
	)

	args := []any{ownerUserID, from, to}
	if typ != "" {
		query += " AND type = $4"
		args = append(args, string(typ))
	}
	query += fmt.Sprintf(" ORDER BY %s ASC, name ASC", dateCol)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAnimals(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnimal(row rowScanner) (animals.Animal, error) {
	var a animals.Animal
	if err := scanAnimalInto(row, &a); err != nil {
		return animals.Animal{}, err
	}
	return a, nil
}

// scanAnimalInto escanea las columnas de animalColumns (en ese orden) más
// cualquier columna extra que la query haya agregado al final.
func scanAnimalInto(row rowScanner, a *animals.Animal, extra ...any) error {
	var (
		typ, gender, status, forSale        string
		damID, sireID                       sql.NullString
		dob, dod, datePurchased, dateSold   sql.NullTime
		purchCost, sellPrice                sql.NullString
	)

	dest := []any{
		&a.ID,
		&a.OwnerUserID,
		&typ,
		&a.Breed,
		&a.Number,
		&a.Name,
		&gender,
		&a.Color,
		&status,
		&damID,
		&sireID,
		&dob,
		&dod,
		&datePurchased,
		&dateSold,
		&purchCost,
		&sellPrice,
		&forSale,
		&a.PendingCompletion,
		&a.Notes,
		&a.Meds,
		&a.PurchaseInfo,
		&a.SellInfo,
		&a.RegNumber,
		&a.RegName,
		&a.Image,
		&a.CreatedAt,
		&a.UpdatedAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return err
	}

	a.Type = animals.Type(typ)
	a.Gender = animals.Gender(gender)
	a.Status = animals.Status(status)
	a.ForSale = animals.ForSale(forSale)

	a.DamID = fromNullRef(damID)
	a.SireID = fromNullRef(sireID)

	// ojo: son DATE, pgx las mapea a time.Time midnight UTC
	a.DOB = fromNullDate(dob)
	a.DOD = fromNullDate(dod)
	a.DatePurchased = fromNullDate(datePurchased)
	a.DateSold = fromNullDate(dateSold)

	var err error
	if a.PurchaseCost, err = fromNullMoney(purchCost); err != nil {
		return err
	}
	if a.SellPrice, err = fromNullMoney(sellPrice); err != nil {
		return err
	}

	return nil
}

func collectAnimals(rows *sql.Rows) ([]animals.Animal, error) {
	out := make([]animals.Animal, 0)
	for rows.Next() {
		a, err := scanAnimal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// prefixColumns devuelve animalColumns con cada columna prefijada por el
// alias (para queries con JOIN).
func prefixColumns(alias string) string {
	cols := strings.Split(animalColumns, ",")
	for i, c := range cols {
		cols[i] = " " + alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ",")
}

func toNullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullDate(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func toNullRef(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullRef(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// Los montos van como NUMERIC en la tabla y como string por el driver,
// decimal de punta a punta: nunca pasan por float64.
func toNullMoney(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.String(), Valid: true}
}

func fromNullMoney(v sql.NullString) (decimal.NullDecimal, error) {
	if !v.Valid {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v.String))
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("bad numeric value %q: %w", v.String, err)
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}
