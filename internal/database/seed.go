package database

import (
	"errors"
	"strings"

	"tresesenta/internal/domain"
	"tresesenta/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func intPtr(v int) *int { return &v }

// DefaultCatalog is the point economy installed on an empty database.
// Existing rows are never overwritten; admins own them after the first boot.
func DefaultCatalog() []models.PointAction {
	return []models.PointAction{
		{ActionCode: domain.ActionCreatePin, ActionName: "Crear pin", Category: "content", Points: 20, DailyLimit: intPtr(5), BonusPoints: 30, IsActive: true},
		{ActionCode: domain.ActionLikePin, ActionName: "Dar like", Category: "social", Points: 5, DailyLimit: intPtr(50), IsActive: true},
		{ActionCode: domain.ActionReceiveLike, ActionName: "Recibir like", Category: "social", Points: 10, IsActive: true},
		{ActionCode: domain.ActionCommentPin, ActionName: "Comentar", Category: "social", Points: 3, DailyLimit: intPtr(20), CooldownSeconds: intPtr(30), IsActive: true},
		{ActionCode: domain.ActionReceiveComment, ActionName: "Recibir comentario", Category: "social", Points: 2, IsActive: true},
		{ActionCode: domain.ActionDailyLogin, ActionName: "Login diario", Category: "engagement", Points: 5, IsActive: true},
		{ActionCode: domain.ActionStreak7Days, ActionName: "Racha de 7 dias", Category: "engagement", Points: 50, IsActive: true},
		{ActionCode: domain.ActionStreak30Days, ActionName: "Racha de 30 dias", Category: "engagement", Points: 200, IsActive: true},
		{ActionCode: domain.ActionVerifiedPurchase, ActionName: "Compra verificada", Category: "purchase", Points: 100, IsActive: true},
		{ActionCode: domain.ActionTresesentaBonus, ActionName: "Bonus TRESESENTA", Category: "purchase", Points: 0, IsActive: true},
		{ActionCode: domain.ActionAdminAdjustment, ActionName: "Ajuste manual", Category: "admin", Points: 0, IsActive: true},
	}
}

func SeedCatalog(db *gorm.DB) error {
	actions := DefaultCatalog()
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "action_code"}},
		DoNothing: true,
	}).Create(&actions).Error
}

func SeedSettings(db *gorm.DB) error {
	rows := make([]models.SystemSetting, 0, len(domain.SettingDefaults))
	for _, d := range domain.SettingDefaults {
		rows = append(rows, models.SystemSetting{Key: d.Key, Value: d.Value, Description: d.Description})
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoNothing: true,
	}).Create(&rows).Error
}

// SeedPlaces installs the base categories and cities.
func SeedPlaces(db *gorm.DB) error {
	categories := []models.Category{
		{Name: "Comida", Icon: "utensils", Color: "#E4572E"},
		{Name: "Cultura", Icon: "landmark", Color: "#29335C"},
		{Name: "Naturaleza", Icon: "tree", Color: "#4CB944"},
		{Name: "Vida nocturna", Icon: "moon", Color: "#7B2CBF"},
		{Name: "Compras", Icon: "bag", Color: "#F3A712"},
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&categories).Error; err != nil {
		return err
	}
	cities := []models.City{
		{Name: "Ciudad de Mexico", State: "CDMX", Latitude: 19.4326, Longitude: -99.1332},
		{Name: "Guadalajara", State: "Jalisco", Latitude: 20.6597, Longitude: -103.3496},
		{Name: "Monterrey", State: "Nuevo Leon", Latitude: 25.6866, Longitude: -100.3161},
		{Name: "Oaxaca", State: "Oaxaca", Latitude: 17.0732, Longitude: -96.7266},
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&cities).Error
}

// SeedAdmin promotes (or creates) the configured administrator account.
func SeedAdmin(db *gorm.DB, email, username string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil
	}
	if username == "" {
		username = "admin"
	}
	var u models.User
	err := db.Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(&models.User{Email: email, Username: username, IsAdmin: true, Level: 1}).Error
	}
	if err != nil {
		return err
	}
	if u.IsAdmin {
		return nil
	}
	return db.Model(&u).Update("is_admin", true).Error
}
