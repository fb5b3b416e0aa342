package repository

import (
	"testing"

	"gorm.io/gorm"
)

type stubDialector struct {
	gorm.Dialector
	name string
}

func (s stubDialector) Name() string { return s.name }

func newDialectDB(name string) *gorm.DB {
	return &gorm.DB{Config: &gorm.Config{Dialector: stubDialector{name: name}}}
}

func TestDBDialectNameNilDB(t *testing.T) {
	if got := dbDialectName(nil); got != dialectSQLite {
		t.Fatalf("nil db dialect want %s got %s", dialectSQLite, got)
	}
	if got := dbDialectName(&gorm.DB{Config: &gorm.Config{}}); got != dialectSQLite {
		t.Fatalf("nil dialector want %s got %s", dialectSQLite, got)
	}
}

func TestDBDialectNameNormalization(t *testing.T) {
	cases := map[string]string{
		"":           dialectSQLite,
		"sqlite":     dialectSQLite,
		"postgres":   dialectPostgres,
		"postgresql": dialectPostgres,
		" Postgres ": dialectPostgres,
	}
	for raw, want := range cases {
		if got := dbDialectName(newDialectDB(raw)); got != want {
			t.Fatalf("dialect %q want %s got %s", raw, want, got)
		}
	}
}

func TestLikeOperatorByDialect(t *testing.T) {
	if got := likeOperator(newDialectDB("postgres")); got != "ILIKE" {
		t.Fatalf("postgres like operator want ILIKE got %s", got)
	}
	if got := likeOperator(newDialectDB("sqlite")); got != "LIKE" {
		t.Fatalf("sqlite like operator want LIKE got %s", got)
	}
	if got := likeOperator(nil); got != "LIKE" {
		t.Fatalf("nil db like operator want LIKE got %s", got)
	}
}
