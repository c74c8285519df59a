// Package migrations creates the members and attendance collections on an
// embedded PocketBase (see scripts/store).
package migrations

import (
	"github.com/pocketbase/pocketbase/core"

	"bus-checkin/internal/models"
	"bus-checkin/internal/repository"
)

func init() {
	core.AppMigrations.Register(func(app core.App) error {
		members := core.NewBaseCollection(repository.MembersCollection)
		members.Fields.Add(
			&core.TextField{Name: "user_id", Required: true, Max: 100},
			&core.TextField{Name: "name", Required: true, Max: 255},
			&core.TextField{Name: "bus_number", Required: true, Max: 50},
			&core.SelectField{
				Name:      "role",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{models.RoleUser, models.RoleAdmin},
			},
			&core.TextField{Name: "password_hash", Required: true},
			&core.TextField{Name: "qr_code"},
			&core.SelectField{
				Name:      "attendance_status",
				MaxSelect: 1,
				Values:    []string{models.StatusPresent, models.StatusAbsent},
			},
			&core.NumberField{Name: "telegram_chat_id", OnlyInt: true},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		members.AddIndex("idx_members_user_id", true, "user_id", "")
		members.AddIndex("idx_members_bus_role", false, "bus_number, role", "")
		if err := app.Save(members); err != nil {
			return err
		}

		attendance := core.NewBaseCollection(repository.AttendanceCollection)
		attendance.Fields.Add(
			&core.TextField{Name: "user_id", Required: true, Max: 100},
			&core.TextField{Name: "bus_number", Max: 50},
			&core.DateField{Name: "date", Required: true},
			&core.TextField{Name: "day", Required: true, Pattern: `^\d{4}-\d{2}-\d{2}$`},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{models.StatusPresent, models.StatusAbsent},
			},
			&core.AutodateField{Name: "created", OnCreate: true},
		)
		// one row per user per calendar day
		attendance.AddIndex("idx_attendance_user_day", true, "user_id, day", "")
		attendance.AddIndex("idx_attendance_user_date", false, "user_id, date", "")
		return app.Save(attendance)
	}, func(app core.App) error {
		for _, name := range []string{repository.AttendanceCollection, repository.MembersCollection} {
			collection, err := app.FindCollectionByNameOrId(name)
			if err != nil {
				return err
			}
			if err := app.Delete(collection); err != nil {
				return err
			}
		}
		return nil
	})
}
