package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("venues")

		collection.Fields.Add(
			&core.TextField{Name: "name", Required: true},
			&core.TextField{Name: "location"},
			&core.NumberField{Name: "rows", Required: true},
			&core.NumberField{Name: "cols", Required: true},
			&core.NumberField{Name: "seat_price"},
			&core.SelectField{Name: "status", Values: []string{"open", "closed"}, MaxSelect: 1},
			&core.JSONField{Name: "seat_grid", MaxSize: 2_000_000},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("venues")
		if err != nil {
			return nil
		}
		return app.Delete(collection)
	})
}
