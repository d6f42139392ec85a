package main

import (
	"fmt"
	"log"
	"time"

	"leadmarket/internal/database"
	"leadmarket/internal/domain/allocation"
	"leadmarket/internal/domain/credit"
	"leadmarket/internal/domain/lead"
	"leadmarket/internal/domain/provider"

	"github.com/google/uuid"
)

func main() {
	db, err := database.Connect("leadmarket.db")
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := db.AutoMigrate(
		&lead.Lead{},
		&provider.Provider{},
		&allocation.Assignment{},
		&allocation.UnlockRecord{},
		&credit.Transaction{},
	); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	// Cleanup old data (in safe order to avoid foreign key errors)
	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM credit_transactions")
	db.Exec("DELETE FROM unlock_records")
	db.Exec("DELETE FROM assignments")
	db.Exec("DELETE FROM leads")
	db.Exec("DELETE FROM providers")

	// ================== PROVIDERS ==================
	log.Println("Creating providers...")

	sydney := coords(-33.8688, 151.2093)
	melbourne := coords(-37.8136, 144.9631)
	brisbane := coords(-27.4698, 153.0251)

	providers := []provider.Provider{
		{
			Name:               "Harbour Plumbing Co",
			Email:              "jobs@harbourplumbing.com.au",
			Categories:         []string{"plumbing", "hot-water"},
			ServiceAreas:       []string{"Sydney", "Parramatta"},
			Latitude:           sydney[0],
			Longitude:          sydney[1],
			TravelRadiusKm:     40,
			VerificationStatus: provider.VerificationVerified,
			Tier:               provider.TierPro,
			Rating:             4.7,
			ResponseTimeHours:  2,
			CreditBalance:      50,
		},
		{
			Name:               "Sparkline Electrical",
			Email:              "hello@sparkline.com.au",
			Categories:         []string{"electrical"},
			ServiceAreas:       []string{"Melbourne"},
			Latitude:           melbourne[0],
			Longitude:          melbourne[1],
			TravelRadiusKm:     30,
			VerificationStatus: provider.VerificationVerified,
			Tier:               provider.TierElite,
			Rating:             4.9,
			ResponseTimeHours:  1,
			CreditBalance:      120,
		},
		{
			Name:               "BrightClean Services",
			Email:              "bookings@brightclean.com.au",
			Categories:         []string{"cleaning", "carpet-cleaning"},
			ServiceAreas:       []string{"nsw"},
			VerificationStatus: provider.VerificationVerified,
			Tier:               provider.TierBasic,
			Rating:             4.2,
			ResponseTimeHours:  6,
			CreditBalance:      20,
		},
		{
			Name:               "QLD Roof Masters",
			Email:              "admin@qldroofmasters.com.au",
			Categories:         []string{"roofing"},
			ServiceAreas:       []string{"Brisbane", "Gold Coast"},
			Latitude:           brisbane[0],
			Longitude:          brisbane[1],
			TravelRadiusKm:     60,
			VerificationStatus: provider.VerificationVerified,
			Tier:               provider.TierFree,
			Rating:             3.8,
			ResponseTimeHours:  12,
			CreditBalance:      10,
			MinJobValue:        2000,
		},
		{
			Name:               "Pending Painters",
			Email:              "info@pendingpainters.com.au",
			Categories:         []string{"painting"},
			ServiceAreas:       []string{"Sydney"},
			VerificationStatus: provider.VerificationPending,
			Tier:               provider.TierFree,
			Rating:             0,
			CreditBalance:      0,
		},
	}
	for i := range providers {
		if err := db.Create(&providers[i]).Error; err != nil {
			log.Fatal("provider seed failed:", err)
		}
	}

	// ================== LEADS ==================
	log.Println("Creating leads...")
	clientID := uuid.New()
	now := time.Now()

	leads := []lead.Lead{
		{
			ClientID:     clientID,
			Category:     "plumbing",
			Title:        "Burst pipe under kitchen sink",
			Description:  "Water is leaking from the pipe under our kitchen sink and pooling on the floor. Need someone out as soon as possible, ideally today.",
			Suburb:       "Newtown",
			City:         "Sydney",
			Latitude:     sydney[0],
			Longitude:    sydney[1],
			ContactName:  "Sarah Mitchell",
			ContactEmail: "sarah.m@example.com",
			ContactPhone: "+61 400 111 222",
			BudgetTier:   lead.Budget1kTo5k,
			Urgency:      lead.UrgencyUrgent,
			Intent:       lead.IntentReadyToHire,
			PropertyType: lead.PropertyResidential,
			Status:       lead.StatusVerified,
			QualityScore: 78,
			MaxProviders: 3,
			ExpiresAt:    now.Add(30 * 24 * time.Hour),
		},
		{
			ClientID:     clientID,
			Category:     "electrical",
			Title:        "Rewire federation house",
			Description:  "We are renovating a 1920s federation house in Carlton and need the whole place rewired, including a new switchboard and safety switches.",
			Suburb:       "Carlton",
			City:         "Melbourne",
			ContactName:  "James Wu",
			ContactEmail: "jwu@example.com",
			ContactPhone: "+61 400 333 444",
			BudgetTier:   lead.Budget5kTo15k,
			Urgency:      lead.UrgencyThisMonth,
			Intent:       lead.IntentComparing,
			PropertyType: lead.PropertyResidential,
			Status:       lead.StatusVerified,
			QualityScore: 85,
			MaxProviders: 3,
			ExpiresAt:    now.Add(30 * 24 * time.Hour),
		},
		{
			ClientID:     clientID,
			Category:     "cleaning",
			Title:        "End of lease clean",
			Description:  "Three bedroom apartment in Surry Hills needs a full end of lease clean next week, including oven and carpets.",
			Suburb:       "Surry Hills",
			City:         "Sydney",
			ContactName:  "Priya Nair",
			ContactEmail: "priya.n@example.com",
			BudgetTier:   lead.BudgetUnder1k,
			Urgency:      lead.UrgencyThisWeek,
			Intent:       lead.IntentReadyToHire,
			Status:       lead.StatusVerified,
			QualityScore: 62,
			MaxProviders: 2,
			ExpiresAt:    now.Add(14 * 24 * time.Hour),
		},
	}
	for i := range leads {
		if err := db.Create(&leads[i]).Error; err != nil {
			log.Fatal("lead seed failed:", err)
		}
	}

	log.Printf("Seed completed: %d providers, %d leads (client_id=%s)", len(providers), len(leads), clientID)
	for i := range leads {
		fmt.Printf("  lead %s  %-12s %s\n", leads[i].ID, leads[i].Category, leads[i].Title)
	}
}

func coords(lat, lng float64) [2]*float64 {
	return [2]*float64{&lat, &lng}
}
