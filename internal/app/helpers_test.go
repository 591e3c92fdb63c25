package app

import (
	"github.com/joacominatel/auditcoe/internal/database"
	"github.com/joacominatel/auditcoe/internal/database/dbtest"
)

func newFake(tables map[string][]database.Column) (*Service, *dbtest.Driver) {
	d := dbtest.New(tables)
	return NewService(d), d
}
