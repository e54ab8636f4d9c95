package deadline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "regengine/pkg/domain-errors"
	"regengine/pkg/testutil"
)

func TestAvailableActions(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   ActionSet
	}{
		{"at-risk offers both", StatusAtRisk, ActionSet{ActionExtension, ActionAutoResponse}},
		{"on-track offers extension only", StatusOnTrack, ActionSet{ActionExtension}},
		{"overdue offers nothing", StatusOverdue, ActionSet{}},
		{"completed offers nothing", StatusCompleted, ActionSet{}},
		{"unknown status offers nothing", Status("paused"), ActionSet{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AvailableActions(tt.status, TypeBreachNotification))
		})
	}

	t.Run("overdue excludes extension for every type", func(t *testing.T) {
		for _, rt := range []RegulatoryType{TypeDSR, TypeBreachNotification, TypeDPIAReview, TypeVendorReview, "x"} {
			assert.False(t, AvailableActions(StatusOverdue, rt).Contains(ActionExtension), rt)
		}
	})

	t.Run("strings keep order", func(t *testing.T) {
		assert.Equal(t, []string{"extension", "auto-response"}, AvailableActions(StatusAtRisk, TypeDSR).Strings())
	})
}

func TestParseActionKindAndStatus(t *testing.T) {
	k, err := ParseActionKind(" Auto-Response ")
	require.NoError(t, err)
	assert.Equal(t, ActionAutoResponse, k)

	_, err = ParseActionKind("notify")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	st, err := ParseStatus("AT-RISK")
	require.NoError(t, err)
	assert.Equal(t, StatusAtRisk, st)

	_, err = ParseStatus("late")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestStatusTone(t *testing.T) {
	assert.Equal(t, ToneSuccess, StatusOnTrack.Tone())
	assert.Equal(t, ToneWarning, StatusAtRisk.Tone())
	assert.Equal(t, ToneDanger, StatusOverdue.Tone())
	assert.Equal(t, ToneNeutral, StatusCompleted.Tone())
	assert.Equal(t, ToneNeutral, Status("unknown").Tone())
}

func TestExtend(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	c := Default()

	testutil.Given(t, "an at-risk DSR deadline", func(t *testing.T) {
		original := Deadline{DueAt: now.Add(3 * 24 * time.Hour), Type: TypeDSR}

		testutil.When(t, "it is extended by 60 days", func(t *testing.T) {
			newDue := original.DueAt.Add(60 * 24 * time.Hour)
			extended, ext, err := original.Extend(c, newDue, now, "  complex request, Art. 12(3)  ")
			require.NoError(t, err)

			testutil.Then(t, "a new deadline carries the extension event", func(t *testing.T) {
				assert.Equal(t, newDue, extended.DueAt)
				require.Len(t, extended.Extensions, 1)
				assert.Equal(t, ext, extended.Extensions[0])
				assert.Equal(t, original.DueAt, ext.PreviousDueAt)
				assert.Equal(t, StatusAtRisk, ext.StatusAtRequest)
				assert.Equal(t, "complex request, Art. 12(3)", ext.Reason)
				assert.Equal(t, original.DueAt, extended.OriginalDueAt())
			})

			testutil.Then(t, "the original deadline is untouched", func(t *testing.T) {
				assert.Empty(t, original.Extensions)
				assert.Equal(t, now.Add(3*24*time.Hour), original.DueAt)
			})

			testutil.Then(t, "a second extension appends to history without aliasing", func(t *testing.T) {
				again, _, err := extended.Extend(c, extended.DueAt.Add(24*time.Hour), now, "second")
				require.NoError(t, err)
				assert.Len(t, again.Extensions, 2)
				assert.Len(t, extended.Extensions, 1)
				assert.Equal(t, original.DueAt, again.OriginalDueAt())
			})
		})
	})

	t.Run("overdue deadlines cannot be extended", func(t *testing.T) {
		d := Deadline{DueAt: now.Add(-time.Hour), Type: TypeBreachNotification}
		_, _, err := d.Extend(c, now.Add(24*time.Hour), now, "late")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeExtensionNotPermitted))
	})

	t.Run("completed deadlines cannot be extended", func(t *testing.T) {
		d := Deadline{DueAt: now.Add(time.Hour), Type: TypeDSR, Completed: true}
		_, _, err := d.Extend(c, now.Add(48*time.Hour), now, "done already")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeExtensionNotPermitted))
	})

	t.Run("new due date must move forward", func(t *testing.T) {
		d := Deadline{DueAt: now.Add(48 * time.Hour), Type: TypeDSR}
		_, _, err := d.Extend(c, d.DueAt, now, "same")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("reason is required", func(t *testing.T) {
		d := Deadline{DueAt: now.Add(48 * time.Hour), Type: TypeDSR}
		_, _, err := d.Extend(c, d.DueAt.Add(time.Hour), now, "   ")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("zero new due date is invalid input", func(t *testing.T) {
		d := Deadline{DueAt: now.Add(48 * time.Hour), Type: TypeDSR}
		_, _, err := d.Extend(c, time.Time{}, now, "x")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
