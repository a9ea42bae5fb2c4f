package workflow

import (
	"time"

	"gcpanel/internal/model"
)

// Rfi is the RFI lifecycle.
var Rfi = New(Config[model.Rfi, model.RfiStatus]{
	Entity:    "rfi",
	Status:    func(r *model.Rfi) model.RfiStatus { return r.Status },
	SetStatus: func(r *model.Rfi, s model.RfiStatus) { r.Status = s },
	Transitions: map[model.RfiStatus][]model.RfiStatus{
		model.RfiStatusDraft:       {model.RfiStatusSubmitted, model.RfiStatusClosed},
		model.RfiStatusSubmitted:   {model.RfiStatusUnderReview, model.RfiStatusAnswered},
		model.RfiStatusUnderReview: {model.RfiStatusAnswered},
		model.RfiStatusAnswered:    {model.RfiStatusClosed, model.RfiStatusUnderReview},
		model.RfiStatusClosed:      nil,
	},
	Stamps: []Stamp[model.Rfi, model.RfiStatus]{
		{On: []model.RfiStatus{model.RfiStatusSubmitted}, Field: func(r *model.Rfi) **time.Time { return &r.SubmittedDate }},
		{On: []model.RfiStatus{model.RfiStatusAnswered, model.RfiStatusClosed}, Field: func(r *model.Rfi) **time.Time { return &r.ResponseDate }},
		{On: []model.RfiStatus{model.RfiStatusClosed}, Field: func(r *model.Rfi) **time.Time { return &r.ClosedDate }},
	},
})

// Submittal is the submittal review lifecycle.
var Submittal = New(Config[model.Submittal, model.SubmittalStatus]{
	Entity:    "submittal",
	Status:    func(s *model.Submittal) model.SubmittalStatus { return s.Status },
	SetStatus: func(s *model.Submittal, st model.SubmittalStatus) { s.Status = st },
	Transitions: map[model.SubmittalStatus][]model.SubmittalStatus{
		model.SubmittalStatusDraft:     {model.SubmittalStatusSubmitted, model.SubmittalStatusClosed},
		model.SubmittalStatusSubmitted: {model.SubmittalStatusUnderReview},
		model.SubmittalStatusUnderReview: {
			model.SubmittalStatusApproved,
			model.SubmittalStatusApprovedAsNoted,
			model.SubmittalStatusRejected,
			model.SubmittalStatusReviseAndResubmit,
		},
		model.SubmittalStatusReviseAndResubmit: {model.SubmittalStatusSubmitted},
		model.SubmittalStatusApproved:          {model.SubmittalStatusClosed},
		model.SubmittalStatusApprovedAsNoted:   {model.SubmittalStatusClosed},
		model.SubmittalStatusRejected:          {model.SubmittalStatusClosed},
		model.SubmittalStatusClosed:            nil,
	},
	Stamps: []Stamp[model.Submittal, model.SubmittalStatus]{
		{On: []model.SubmittalStatus{model.SubmittalStatusSubmitted}, Field: func(s *model.Submittal) **time.Time { return &s.SubmittedDate }},
		{
			On: []model.SubmittalStatus{
				model.SubmittalStatusApproved,
				model.SubmittalStatusApprovedAsNoted,
				model.SubmittalStatusRejected,
			},
			Field: func(s *model.Submittal) **time.Time { return &s.ReviewDate },
		},
		{On: []model.SubmittalStatus{model.SubmittalStatusClosed}, Field: func(s *model.Submittal) **time.Time { return &s.ClosedDate }},
	},
})
