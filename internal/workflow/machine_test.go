package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gcpanel/internal/errors"
	"gcpanel/internal/model"
)

func TestSubmittal_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    model.SubmittalStatus
		to      model.SubmittalStatus
		wantErr bool
	}{
		{"submit draft", model.SubmittalStatusDraft, model.SubmittalStatusSubmitted, false},
		{"start review", model.SubmittalStatusSubmitted, model.SubmittalStatusUnderReview, false},
		{"approve", model.SubmittalStatusUnderReview, model.SubmittalStatusApproved, false},
		{"approve as noted", model.SubmittalStatusUnderReview, model.SubmittalStatusApprovedAsNoted, false},
		{"reject", model.SubmittalStatusUnderReview, model.SubmittalStatusRejected, false},
		{"resubmit", model.SubmittalStatusReviseAndResubmit, model.SubmittalStatusSubmitted, false},
		{"close approved", model.SubmittalStatusApproved, model.SubmittalStatusClosed, false},
		{"withdraw draft", model.SubmittalStatusDraft, model.SubmittalStatusClosed, false},
		{"skip review", model.SubmittalStatusDraft, model.SubmittalStatusApproved, true},
		{"reopen closed", model.SubmittalStatusClosed, model.SubmittalStatusSubmitted, true},
		{"approve from submitted", model.SubmittalStatusSubmitted, model.SubmittalStatusApproved, true},
		{"unknown status", model.SubmittalStatusDraft, model.SubmittalStatus("lost"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &model.Submittal{Status: tt.from}
			_, err := Submittal.Apply(s, tt.to, time.Now())
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
				assert.Equal(t, tt.from, s.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, s.Status)
		})
	}
}

func TestSubmittal_StampsOnce(t *testing.T) {
	first := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	later := first.Add(48 * time.Hour)

	s := &model.Submittal{Status: model.SubmittalStatusUnderReview}
	changed, err := Submittal.Apply(s, model.SubmittalStatusApproved, first)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, s.ReviewDate)
	assert.Equal(t, first, *s.ReviewDate)

	changed, err = Submittal.Apply(s, model.SubmittalStatusApproved, later)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, first, *s.ReviewDate)

	_, err = Submittal.Apply(s, model.SubmittalStatusClosed, later)
	require.NoError(t, err)
	assert.Equal(t, first, *s.ReviewDate)
	require.NotNil(t, s.ClosedDate)
	assert.Equal(t, later, *s.ClosedDate)
}

func TestSubmittal_ResubmitKeepsOriginalSubmittedDate(t *testing.T) {
	day1 := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	day5 := day1.AddDate(0, 0, 4)

	s := &model.Submittal{Status: model.SubmittalStatusDraft}
	for _, step := range []model.SubmittalStatus{
		model.SubmittalStatusSubmitted,
		model.SubmittalStatusUnderReview,
		model.SubmittalStatusReviseAndResubmit,
	} {
		_, err := Submittal.Apply(s, step, day1)
		require.NoError(t, err)
	}
	assert.Nil(t, s.ReviewDate)

	_, err := Submittal.Apply(s, model.SubmittalStatusSubmitted, day5)
	require.NoError(t, err)
	assert.Equal(t, day1, *s.SubmittedDate)
}

func TestRfi_AnswerAndClose(t *testing.T) {
	answered := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	closed := answered.AddDate(0, 0, 1)

	r := &model.Rfi{Status: model.RfiStatusSubmitted}
	_, err := Rfi.Apply(r, model.RfiStatusAnswered, answered)
	require.NoError(t, err)
	assert.Equal(t, answered, *r.ResponseDate)
	assert.Nil(t, r.ClosedDate)

	_, err = Rfi.Apply(r, model.RfiStatusClosed, closed)
	require.NoError(t, err)
	assert.Equal(t, answered, *r.ResponseDate)
	assert.Equal(t, closed, *r.ClosedDate)

	_, err = Rfi.Apply(r, model.RfiStatusSubmitted, closed)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "closed", te.From)
	assert.Equal(t, "submitted", te.To)
}

func TestAllowed(t *testing.T) {
	assert.Equal(t,
		[]model.RfiStatus{model.RfiStatusSubmitted, model.RfiStatusClosed},
		Rfi.Allowed(model.RfiStatusDraft))
	assert.Empty(t, Rfi.Allowed(model.RfiStatusClosed))
	assert.Len(t, Submittal.Allowed(model.SubmittalStatusUnderReview), 4)

	allowed := Rfi.Allowed(model.RfiStatusDraft)
	allowed[0] = model.RfiStatusClosed
	assert.Equal(t, model.RfiStatusSubmitted, Rfi.Allowed(model.RfiStatusDraft)[0])
}
