package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/wolfman30/dentalbook/internal/app/bootstrap"
	appconfig "github.com/wolfman30/dentalbook/internal/config"
	"github.com/wolfman30/dentalbook/internal/dental"
	"github.com/wolfman30/dentalbook/internal/store"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

func main() {
	patients := flag.Int("patients", 40, "number of patients to create")
	seed := flag.Uint64("seed", 0, "random seed (0 picks one)")
	flag.Parse()

	_ = appconfig.LoadDotEnv()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.UseMemoryStore() {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	today := time.Now().In(cfg.Location())
	data := generate(gofakeit.New(*seed), today, *patients)
	if err := write(ctx, store.NewPostgresStore(pool), data); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
	logger.Info("seed complete", "patients", len(data), "appointments", data.appointments())
}

type seedPatient struct {
	patient      dental.Patient
	appointments []dental.Appointment
}

type dataset []seedPatient

func (d dataset) appointments() int {
	n := 0
	for _, p := range d {
		n += len(p.appointments)
	}
	return n
}

var sexes = []string{dental.SexMale, dental.SexFemale, dental.SexOther}

// generate builds patients with appointments spread over the 90 days around
// today. Past appointments are closed out; future ones are pending or
// scheduled. No two slot-holding appointments share a slot.
func generate(f *gofakeit.Faker, today time.Time, patients int) dataset {
	taken := map[string]struct{}{}
	out := make(dataset, 0, patients)

	for i := 0; i < patients; i++ {
		first, last := f.FirstName(), f.LastName()
		p := dental.Patient{
			FirstName:   first,
			LastName:    last,
			ContactName: first + " " + last,
			Email:       fmt.Sprintf("%s.%s%d@%s", strings.ToLower(first), strings.ToLower(last), f.Number(1, 99), dental.EmailDomains[f.Number(0, len(dental.EmailDomains)-1)]),
			Phone:       fmt.Sprintf("09%09d", f.Number(0, 999999999)),
			Age:         f.Number(4, 85),
			Sex:         sexes[f.Number(0, len(sexes)-1)],
			Status:      dental.PatientActive,
		}
		if f.Number(0, 9) == 0 {
			p.Status = dental.PatientInactive
		}

		sp := seedPatient{patient: p}
		visits := f.Number(1, 3)
		for attempt := 0; len(sp.appointments) < visits && attempt < visits*5; attempt++ {
			day := today.AddDate(0, 0, f.Number(-60, 30))
			if day.Weekday() == time.Sunday {
				continue
			}
			date := dental.FormatDate(day)
			slot := dental.TimeSlots[f.Number(0, len(dental.TimeSlots)-1)]
			key := date + "|" + slot
			if _, dup := taken[key]; dup {
				continue
			}

			proc := dental.PriceList[f.Number(0, len(dental.PriceList)-1)]
			status := pickStatus(f, date < dental.FormatDate(today))
			if status.OccupiesSlot() {
				taken[key] = struct{}{}
			}
			sp.appointments = append(sp.appointments, dental.Appointment{
				PatientName: p.FullName(),
				Phone:       p.Phone,
				Procedure:   proc.Name,
				Price:       proc.Price,
				Date:        date,
				Time:        slot,
				Status:      status,
				Occurrences: 1,
			})
		}
		out = append(out, sp)
	}
	return out
}

func pickStatus(f *gofakeit.Faker, past bool) dental.AppointmentStatus {
	roll := f.Number(1, 100)
	if past {
		switch {
		case roll <= 70:
			return dental.StatusCompleted
		case roll <= 85:
			return dental.StatusCancelled
		default:
			return dental.StatusNoShow
		}
	}
	if roll <= 40 {
		return dental.StatusPending
	}
	return dental.StatusScheduled
}

func write(ctx context.Context, st store.Store, data dataset) error {
	return st.WithinTx(ctx, func(tx store.Store) error {
		for _, sp := range data {
			p := sp.patient
			for _, a := range sp.appointments {
				if a.Status == dental.StatusCompleted && a.Date > p.LastVisit {
					p.LastVisit = a.Date
				}
			}
			if err := tx.CreatePatient(ctx, &p); err != nil {
				return fmt.Errorf("seed: create patient: %w", err)
			}
			for _, a := range sp.appointments {
				a.PatientID = p.ID
				if err := tx.CreateAppointment(ctx, &a); err != nil {
					return fmt.Errorf("seed: create appointment: %w", err)
				}
			}
		}
		return nil
	})
}
