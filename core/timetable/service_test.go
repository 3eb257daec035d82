package timetable_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/timetable"
	inmemdb "github.com/attendly/attendly/storage/database/inmem"
)

func newValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	timetable.InitValidators(validate, translator)
	return validate
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "9:00 AM", want: 9 * 60},
		{in: "9:30am", want: 9*60 + 30},
		{in: "12:15 PM", want: 12*60 + 15},
		{in: "2 PM", want: 14 * 60},
		{in: "14:30", want: 14*60 + 30},
		{in: " 08:05 ", want: 8*60 + 5},
		{in: "noon", wantErr: true},
		{in: "25:00", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := timetable.ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewClass_Validate(t *testing.T) {
	validate := newValidator()

	tests := []struct {
		name    string
		nc      timetable.NewClass
		wantDay string
		wantErr bool
	}{
		{name: "valid", nc: timetable.NewClass{Day: "monday", Subject: " Physics ", Time: "9:00 AM"}, wantDay: "Monday"},
		{name: "24h clock", nc: timetable.NewClass{Day: "FRIDAY", Subject: "Maths", Time: "14:00"}, wantDay: "Friday"},
		{name: "bad day", nc: timetable.NewClass{Day: "Funday", Subject: "Maths", Time: "14:00"}, wantErr: true},
		{name: "bad time", nc: timetable.NewClass{Day: "Monday", Subject: "Maths", Time: "whenever"}, wantErr: true},
		{name: "blank subject", nc: timetable.NewClass{Day: "Monday", Subject: "   ", Time: "9:00"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nc.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDay, tt.nc.Day)
		})
	}
}

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := timetable.NewService(inmemdb.NewTimetableRepository(inmemdb.Open()))

	tt, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", tt.UserID)
	assert.NotNil(t, tt.Classes)
	assert.Empty(t, tt.Classes)

	tt, err = svc.Save(ctx, "u1", timetable.SaveTimetable{Classes: []timetable.NewClass{
		{Day: "Monday", Subject: "Chemistry", Time: "2:00 PM"},
		{Day: "Monday", Subject: "Physics", Time: "9:00 AM"},
		{Day: "Wednesday", Subject: "Maths", Time: "11:00"},
	}})
	require.NoError(t, err)
	require.Len(t, tt.Classes, 3)
	for _, c := range tt.Classes {
		assert.NotEmpty(t, c.ID)
	}

	tt, err = svc.AddClass(ctx, "u1", timetable.NewClass{Day: "Monday", Subject: "Biology", Time: "10:30 AM"})
	require.NoError(t, err)
	require.Len(t, tt.Classes, 4)

	days := timetable.ByDay(tt)
	require.Len(t, days, 7)
	assert.Equal(t, "Monday", days[0].Day)
	assert.Equal(t, "Sunday", days[6].Day)
	var subjects []string
	for _, c := range days[0].Classes {
		subjects = append(subjects, c.Subject)
	}
	assert.Equal(t, []string{"Physics", "Biology", "Chemistry"}, subjects)
	assert.Len(t, days[2].Classes, 1)
	assert.Empty(t, days[1].Classes)

	wednesday := time.Date(2024, time.March, 6, 8, 0, 0, 0, time.UTC)
	today := timetable.Today(tt, wednesday)
	assert.Equal(t, "Wednesday", today.Day)
	require.Len(t, today.Classes, 1)
	assert.Equal(t, "Maths", today.Classes[0].Subject)

	mathsID := today.Classes[0].ID
	subj := "Statistics"
	tt, err = svc.UpdateClass(ctx, "u1", mathsID, timetable.UpdateClass{Subject: &subj})
	require.NoError(t, err)
	assert.Equal(t, "Statistics", timetable.Today(tt, wednesday).Classes[0].Subject)

	tt, err = svc.RemoveClass(ctx, "u1", mathsID)
	require.NoError(t, err)
	assert.Len(t, tt.Classes, 3)
	assert.Empty(t, timetable.Today(tt, wednesday).Classes)

	_, err = svc.RemoveClass(ctx, "u1", mathsID)
	assert.Equal(t, timetable.ErrClassNotFound, errors.Cause(err))
	_, err = svc.UpdateClass(ctx, "u1", "nope", timetable.UpdateClass{Subject: &subj})
	assert.Equal(t, timetable.ErrClassNotFound, errors.Cause(err))

	// saving replaces everything
	tt, err = svc.Save(ctx, "u1", timetable.SaveTimetable{})
	require.NoError(t, err)
	assert.Empty(t, tt.Classes)

	// timetables are per user
	other, err := svc.Get(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other.Classes)
}
