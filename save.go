package simpledb

import (
	"context"
	"fmt"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

func (db *DB) key(pk string) string {
	if pk == "" {
		return db.primaryKey
	}
	return pk
}

// Insert inserts rec into table and returns the affected rows.
func (db *DB) Insert(ctx context.Context, table string, rec Record) (int64, error) {
	query, args, err := rec.InsertSQL(table)
	if err != nil {
		return 0, WrapInsertError(err, table)
	}
	n, err := db.Execute(ctx, query, Args(args...))
	if err != nil {
		return 0, WrapInsertError(err, table)
	}
	return n, nil
}

// Update sets every column of rec but the primary key on the row of table
// whose primary key equals rec's. An empty pk means the DB default.
func (db *DB) Update(ctx context.Context, table string, rec Record, pk string) (int64, error) {
	query, args, err := rec.UpdateSQL(table, db.key(pk))
	if err != nil {
		return 0, WrapUpdateError(err, table)
	}
	n, err := db.Execute(ctx, query, Args(args...))
	if err != nil {
		return 0, WrapUpdateError(err, table)
	}
	return n, nil
}

// recordID reads the primary key of rec as an integer.
func recordID(rec Record, pk string) (int64, error) {
	v, ok := rec.Get(pk)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingPrimaryKey, pk)
	}
	id, err := convert[int64](v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not an integer: %v", ErrMissingPrimaryKey, pk, err)
	}
	return id, nil
}

// Save inserts rec when its primary key is 0 and returns the generated id,
// or updates the existing row and returns its id.
//
//	rec, _ := simpledb.RecordFromJSON([]byte(`{"Id":0,"Name":"Ann"}`))
//	id, err := db.Save(ctx, "users", rec)
func (db *DB) Save(ctx context.Context, table string, rec Record) (int64, error) {
	pk := db.primaryKey
	id, err := recordID(rec, pk)
	if err != nil {
		return 0, WrapError(err, "SAVE", table)
	}
	if id != 0 {
		if _, err := db.Update(ctx, table, rec, pk); err != nil {
			return 0, err
		}
		return id, nil
	}

	fields := rec.Without(pk)
	query, args, err := fields.InsertSQL(table)
	if err != nil {
		return 0, WrapInsertError(err, table)
	}

	if db.backend.Capabilities().Returning {
		if err := ValidateIdentifier(pk); err != nil {
			return 0, WrapInsertError(err, table)
		}
		id, err := Val[int64](ctx, db, query+" RETURNING "+pk, Args(args...))
		if err != nil {
			return 0, WrapInsertError(err, table)
		}
		return id, nil
	}

	op := db.begin("SAVE", query)
	res, err := db.exec(ctx, NewCommand(query, Args(args...)))
	if err != nil {
		return 0, WrapInsertError(op.end(err), table)
	}
	op.end(nil, Int64("id", res.LastInsertID))
	return res.LastInsertID, nil
}

// SaveAll writes a whole list in one transaction: it deletes the rows
// whose ids are listed in deleteIDs ("3,14,15"), updates the records with
// a nonzero idProp and inserts the others with one multi-row INSERT. The
// columns are those of the first record. It returns the total affected
// rows. A malformed id list fails before anything runs.
func (db *DB) SaveAll(ctx context.Context, table string, records []Record, deleteIDs, idProp string) (int64, error) {
	idProp = db.key(idProp)
	if err := ValidateIdentifier(table); err != nil {
		return 0, err
	}
	if err := ValidateIdentifier(idProp); err != nil {
		return 0, err
	}

	var cmds []Command
	if strings.TrimSpace(deleteIDs) != "" {
		ids, err := ParseIDList(deleteIDs)
		if err != nil {
			return 0, err
		}
		query, args, err := sq.Delete(table).Where(sq.Eq{idProp: ids}).ToSql()
		if err != nil {
			return 0, err
		}
		cmds = append(cmds, NewCommand(query, Args(args...)))
	}

	var (
		columns []string
		inserts []Record
	)
	for i, rec := range records {
		if i == 0 {
			columns = rec.Without(idProp).Columns
		}
		id, err := recordID(rec, idProp)
		if err != nil {
			return 0, WrapError(err, "SAVEALL", table)
		}
		fields := Record{Columns: slices.Clone(columns), Values: make([]interface{}, len(columns))}
		for j, c := range columns {
			fields.Values[j], _ = rec.Get(c)
		}
		if id == 0 {
			inserts = append(inserts, fields)
			continue
		}
		fields.Set(idProp, id)
		query, args, err := fields.UpdateSQL(table, idProp)
		if err != nil {
			return 0, WrapUpdateError(err, table)
		}
		cmds = append(cmds, NewCommand(query, Args(args...)))
	}

	insertCmds, err := InsertManySQL(table, inserts)
	if err != nil {
		return 0, WrapInsertError(err, table)
	}
	cmds = append(cmds, insertCmds...)
	if len(cmds) == 0 {
		return 0, nil
	}

	results, err := db.batch(ctx, "SAVEALL", cmds)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, r := range results {
		total += r.RowsAffected
	}
	return total, nil
}

// Delete removes the row of table whose primary key pk equals id and
// reports whether exactly one row was deleted. An empty pk means the DB
// default.
func (db *DB) Delete(ctx context.Context, table string, id int64, pk string) (bool, error) {
	pk = db.key(pk)
	if err := ValidateIdentifier(table); err != nil {
		return false, err
	}
	if err := ValidateIdentifier(pk); err != nil {
		return false, err
	}
	query, args, err := sq.Delete(table).Where(sq.Eq{pk: id}).ToSql()
	if err != nil {
		return false, err
	}
	n, err := db.Execute(ctx, query, Args(args...))
	if err != nil {
		return false, WrapDeleteError(err, table)
	}
	return n == 1, nil
}
