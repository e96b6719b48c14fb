package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// seed profiles use telegram ids in this range so they never collide with real accounts
const seedTelegramBase = 10000000

var (
	femaleNames = []string{"Мария", "Кристина", "Анна", "Алина", "Дарья", "Полина", "Екатерина", "Виктория", "Софья", "Ева"}
	maleNames   = []string{"Иван", "Артём", "Максим", "Дмитрий", "Никита", "Егор", "Кирилл", "Михаил", "Лев", "Тимур"}
	seedBios    = []string{"Люблю музыку и искусство", "Путешествия и спорт", "Кофе, книги, кино", "Ищу кого-то для прогулок", ""}
)

// SeedTestData resets the seed profiles and populates demo users and decisions.
//
// Behavior:
//  1. Deletes previously seeded users (telegram ids above seedTelegramBase) with
//     their interactions, matches and reports. Real accounts are untouched.
//  2. Creates 20 users (10 female, 10 male) aged 18..35, spread over the last days.
//  3. Generates random likes/dislikes between opposite genders (~70% likes);
//     every 3rd like is returned, and each mutual like gets one match row.
//
// Works on Postgres, MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	var oldIDs []string
	if err := db.Model(&User{}).Where("telegram_id > ?", seedTelegramBase).Pluck("id", &oldIDs).Error; err != nil {
		return fmt.Errorf("failed to list seed users: %w", err)
	}
	if len(oldIDs) > 0 {
		if err := db.Where("user1_id IN ? OR user2_id IN ?", oldIDs, oldIDs).Delete(&Match{}).Error; err != nil {
			return fmt.Errorf("failed to clear matches: %w", err)
		}
		if err := db.Where("reporter_id IN ? OR reported_id IN ?", oldIDs, oldIDs).Delete(&Report{}).Error; err != nil {
			return fmt.Errorf("failed to clear reports: %w", err)
		}
		if err := db.Where("user_id IN ? OR target_user_id IN ?", oldIDs, oldIDs).Delete(&Interaction{}).Error; err != nil {
			return fmt.Errorf("failed to clear interactions: %w", err)
		}
		if err := db.Where("id IN ?", oldIDs).Delete(&User{}).Error; err != nil {
			return fmt.Errorf("failed to clear users: %w", err)
		}
	}
	log.Printf("Cleared %d seed users", len(oldIDs))

	// --- Seed Users (10 female, 10 male) ---
	now := time.Now().UTC()
	var women, men []*User
	for i := 0; i < 20; i++ {
		u := NewUser(int64(seedTelegramBase + i + 1))
		age := 18 + r.Intn(18)
		u.Age = &age
		u.Bio = seedBios[r.Intn(len(seedBios))]
		u.CreatedAt = now.Add(-time.Duration(r.Intn(7*24)) * time.Hour)
		u.LastLogin = u.CreatedAt

		if i < 10 {
			u.FirstName = femaleNames[i]
			u.Gender = "female"
			u.SearchGender = "male"
			women = append(women, u)
		} else {
			u.FirstName = maleNames[i-10]
			u.Gender = "male"
			u.SearchGender = "female"
			men = append(men, u)
		}
		u.Username = fmt.Sprintf("seed_%s_%d", u.Gender, i+1)

		if err := db.Create(u).Error; err != nil {
			return fmt.Errorf("failed to insert user %d: %w", i+1, err)
		}
	}
	log.Println("Inserted 20 users")

	// --- Seed Interactions ---
	var likes, matches int
	like := func(actor, target *User, at time.Time) error {
		in := Interaction{
			UserID:       actor.ID,
			TargetUserID: target.ID,
			Action:       ActionLike,
			IsSuperLike:  r.Intn(10) == 0,
			CreatedAt:    at,
		}
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&in)
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		likes++

		var reverse int64
		err := db.Model(&Interaction{}).
			Where("user_id = ? AND target_user_id = ? AND action = ?", target.ID, actor.ID, ActionLike).
			Count(&reverse).Error
		if err != nil || reverse == 0 {
			return err
		}
		a, b := CanonicalPair(actor.ID, target.ID)
		m := Match{User1ID: a, User2ID: b, MatchedAt: at}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
			return err
		}
		matches++
		return nil
	}

	for _, pair := range [][2][]*User{{women, men}, {men, women}} {
		for _, actor := range pair[0] {
			for _, target := range pair[1] {
				if r.Float64() > 0.5 {
					continue
				}
				at := now.Add(-time.Duration(r.Intn(72)) * time.Hour)
				if r.Float64() >= 0.7 {
					in := Interaction{UserID: actor.ID, TargetUserID: target.ID, Action: ActionDislike, CreatedAt: at}
					if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&in).Error; err != nil {
						return fmt.Errorf("failed to insert interaction: %w", err)
					}
					continue
				}
				if err := like(actor, target, at); err != nil {
					return fmt.Errorf("failed to insert like: %w", err)
				}
				// every 3rd like comes back
				if likes%3 == 0 {
					if err := like(target, actor, at.Add(time.Hour)); err != nil {
						return fmt.Errorf("failed to insert like: %w", err)
					}
				}
			}
		}
	}

	log.Printf("Seeded %d likes and %d matches", likes, matches)
	return nil
}
