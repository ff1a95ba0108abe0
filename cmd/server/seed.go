package main

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"storyia/internal/models"
)

type sampleEntry struct {
	title   string
	content string
	mood    string
	tags    []string
}

var sampleEntries = []sampleEntry{
	{"Morning run", "Ran along the canal before work, legs heavy but head clear.", "happy", []string{"sport", "morning"}},
	{"Long meeting day", "Back to back meetings, barely had time for lunch.", "tired", []string{"work"}},
	{"Dinner with friends", "Cooked risotto for everyone, lots of laughing.", "happy", []string{"friends", "food"}},
	{"Rainy Sunday", "Stayed in with a book and tea all afternoon.", "neutral", []string{"rest", "reading"}},
	{"Deadline stress", "The report is due tomorrow and nothing is finished.", "angry", []string{"work", "stress"}},
	{"Call with mum", "Talked for an hour about the garden and old photos.", "happy", []string{"family"}},
	{"Slept badly", "Woke up at four and could not fall asleep again.", "tired", []string{"sleep"}},
	{"New project kickoff", "Excited about the new team and the roadmap.", "excited", []string{"work", "project"}},
	{"Walk in the park", "Autumn leaves everywhere, took a few pictures.", "happy", []string{"nature", "photos"}},
	{"Quiet evening", "Nothing special, some tidying and an early night.", "neutral", []string{"home"}},
	{"Missed the train", "Everything went wrong this morning, felt low all day.", "sad", []string{"commute"}},
	{"Yoga class", "First class in months, surprisingly calm afterwards.", "happy", []string{"sport", "wellbeing"}},
}

var weathers = models.Choices["weather"]

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill an account with a year of sample journal entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		username, _ := cmd.Flags().GetString("username")

		_, logger, st, err := setup()
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, st.Close(), logger.Sync())
		}()
		ctx := cmd.Context()

		u, err := st.GetUserByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("could not find user %s: %w", username, err)
		}

		now := time.Now()
		inserted := 0
		for day := now.AddDate(-1, 0, 0); day.Before(now); day = day.AddDate(0, 0, 1) {
			// roughly two entries out of three days
			if rand.IntN(3) == 0 {
				continue
			}
			s := sampleEntries[rand.IntN(len(sampleEntries))]
			energy, sleep := rand.IntN(5)+1, rand.IntN(5)+1
			e := models.JournalEntry{
				UserID:       u.ID,
				Title:        s.title,
				Content:      s.content,
				EntryDate:    day.Format(time.DateOnly),
				Mood:         s.mood,
				EnergyLevel:  &energy,
				SleepQuality: &sleep,
				Weather:      weathers[rand.IntN(len(weathers))],
				Tags:         s.tags,
			}
			if _, err := st.CreateEntry(ctx, &e); err != nil {
				logger.Warn("error inserting entry", zap.String("date", e.EntryDate), zap.Error(err))
				continue
			}
			inserted++
		}

		logger.Info("seeded journal", zap.String("username", username), zap.Int("entries", inserted))
		return nil
	},
}

func init() {
	seedCmd.Flags().String("username", "admin", "account to fill")
}
