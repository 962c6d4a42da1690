package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tutoria/tutoria-backend/internal/config"
	"github.com/tutoria/tutoria-backend/internal/database"
	"github.com/tutoria/tutoria-backend/internal/logger"
	"github.com/tutoria/tutoria-backend/internal/model"
	"github.com/tutoria/tutoria-backend/internal/repository"
	"github.com/tutoria/tutoria-backend/internal/service"
	"github.com/tutoria/tutoria-backend/internal/timezone"
)

type seedStudent struct {
	name     string
	email    string
	timezone string
	sessions int
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	zone := cfg.CanonicalTimezone
	if zone == "" {
		zone = "UTC"
	}
	tz, err := timezone.New(zone)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load canonical timezone")
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	studentRepo := repository.NewStudentRepository(pool)
	groupRepo := repository.NewGroupRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)

	studentService := service.NewStudentService(studentRepo, tz, log)
	groupService := service.NewGroupService(groupRepo, studentRepo, tz, log)
	settingService := service.NewSettingService(settingRepo, log)

	fmt.Println("=== Seeding demo data ===")

	roster := []seedStudent{
		{"Amara Osei", "amara.osei@example.com", "Europe/London", 10},
		{"Bram van Dijk", "bram.vandijk@example.com", "Europe/Amsterdam", 8},
		{"Chloe Tan", "chloe.tan@example.com", "Asia/Singapore", 12},
		{"Diego Fuentes", "diego.fuentes@example.com", "America/Mexico_City", 10},
		{"Elif Yilmaz", "elif.yilmaz@example.com", "Europe/Istanbul", 6},
		{"Farhan Siddiqui", "farhan.siddiqui@example.com", "Asia/Karachi", 10},
		{"Grace Kim", "grace.kim@example.com", "America/New_York", 16},
		{"Hana Suzuki", "hana.suzuki@example.com", "Asia/Tokyo", 8},
		{"Ivan Petrov", "ivan.petrov@example.com", "", 10},
		{"Julia Nowak", "julia.nowak@example.com", "Europe/Warsaw", 4},
		{"Kwame Mensah", "kwame.mensah@example.com", "Africa/Accra", 10},
		{"Lucia Moretti", "lucia.moretti@example.com", "Europe/Rome", 12},
	}

	var studentIDs []int
	for _, s := range roster {
		student, err := studentService.Create(ctx, &model.CreateStudentRequest{
			FullName:      s.name,
			Email:         s.email,
			Timezone:      s.timezone,
			TotalSessions: s.sessions,
		})
		if err != nil {
			fmt.Printf("Error creating student %s: %v\n", s.name, err)
			continue
		}
		studentIDs = append(studentIDs, student.ID)
	}
	fmt.Printf("Created %d/%d students\n", len(studentIDs), len(roster))

	fmt.Println("=== Seeding demo group ===")

	group, err := groupService.Create(ctx, &model.CreateGroupRequest{
		Name:          "Saturday Algebra Circle",
		Timezone:      "Europe/London",
		TotalSessions: 20,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create group")
	}

	enrolled := 0
	for _, id := range studentIDs {
		if enrolled == 4 {
			break
		}
		if err := groupService.AddMember(ctx, group.ID, id); err != nil {
			fmt.Printf("Error enrolling student %d: %v\n", id, err)
			continue
		}
		enrolled++
	}
	fmt.Printf("Created group %q (ID %d) with %d members\n", group.Name, group.ID, enrolled)

	fmt.Println("=== Seeding settings ===")

	settings := map[string]string{
		model.SettingInstitutionName:    "Tutoria Demo Academy",
		model.SettingDefaultMeetingLink: "https://meet.example.com/tutoria-demo",
	}
	if err := settingService.UpdateSettings(ctx, settings); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed settings")
	}

	fmt.Println("\nSeed completed!")
}
