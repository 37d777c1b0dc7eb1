package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("bookings")

		collection.Fields.Add(
			&core.TextField{Name: "venue_id", Required: true},
			&core.TextField{Name: "user_id", Required: true},
			&core.JSONField{Name: "seats", MaxSize: 100_000},
			&core.JSONField{Name: "seat_keys", MaxSize: 100_000},
			&core.NumberField{Name: "total_amount"},
			&core.TextField{Name: "reference"},
			&core.SelectField{Name: "status", Values: []string{"confirmed", "cancelled"}, MaxSelect: 1},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_bookings_venue_user", false, "venue_id, user_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("bookings")
		if err != nil {
			return nil
		}
		return app.Delete(collection)
	})
}
