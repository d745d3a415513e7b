// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package validation

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/danielhkuo/votedesk/models"
)

func TestPoll(t *testing.T) {
	tests := []struct {
		name          string
		question      string
		options       []string
		wantQuestion  string
		wantOptions   []string
		wantErrFields []string
	}{
		{
			name:         "valid poll",
			question:     "Best color?",
			options:      []string{"Red", "Blue"},
			wantQuestion: "Best color?",
			wantOptions:  []string{"Red", "Blue"},
		},
		{
			name:         "trims and drops blank options",
			question:     "  Best color?  ",
			options:      []string{" Red ", "", "   ", "Blue"},
			wantQuestion: "Best color?",
			wantOptions:  []string{"Red", "Blue"},
		},
		{
			name:         "case-sensitive uniqueness",
			question:     "Pick",
			options:      []string{"red", "Red"},
			wantQuestion: "Pick",
			wantOptions:  []string{"red", "Red"},
		},
		{
			name:          "empty question",
			question:      "   ",
			options:       []string{"Red", "Blue"},
			wantErrFields: []string{"question"},
		},
		{
			name:          "one option",
			question:      "Pick",
			options:       []string{"Red"},
			wantErrFields: []string{"options"},
		},
		{
			name:          "one non-empty option",
			question:      "Pick",
			options:       []string{"Red", " "},
			wantErrFields: []string{"options"},
		},
		{
			name:          "duplicate options",
			question:      "Pick",
			options:       []string{"Red", "Blue", "Red"},
			wantErrFields: []string{"options"},
		},
		{
			name:          "everything wrong",
			question:      "",
			options:       nil,
			wantErrFields: []string{"options", "question"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			question, options, err := Poll(tt.question, tt.options)

			if len(tt.wantErrFields) > 0 {
				var verrs Errors
				if !errors.As(err, &verrs) {
					t.Fatalf("Expected validation Errors, got %v", err)
				}
				for _, field := range tt.wantErrFields {
					if verrs[field] == "" {
						t.Errorf("Expected error for field %q, got %v", field, verrs)
					}
				}
				if len(verrs) != len(tt.wantErrFields) {
					t.Errorf("Expected %d field errors, got %v", len(tt.wantErrFields), verrs)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if question != tt.wantQuestion {
				t.Errorf("Expected question %q, got %q", tt.wantQuestion, question)
			}
			if !reflect.DeepEqual(options, tt.wantOptions) {
				t.Errorf("Expected options %v, got %v", tt.wantOptions, options)
			}
		})
	}
}

func TestStruct_UsesJSONFieldNames(t *testing.T) {
	err := Struct(models.CastVoteRequest{PollID: "p1"})

	var verrs Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("Expected validation Errors, got %v", err)
	}
	if _, ok := verrs["optionId"]; !ok {
		t.Errorf("Expected error keyed by optionId, got %v", verrs)
	}
	if !strings.Contains(verrs["optionId"], "required") {
		t.Errorf("Expected translated required message, got %q", verrs["optionId"])
	}
}

func TestDestination(t *testing.T) {
	tests := []struct {
		method      string
		destination string
		wantErr     bool
	}{
		{models.MethodEmail, "voter@example.com", false},
		{models.MethodEmail, "not-an-email", true},
		{models.MethodEmail, "", true},
		{models.MethodOTP, "+14155550123", false},
		{models.MethodOTP, "4155550123", false},
		{models.MethodOTP, "0712345678", false},
		{models.MethodOTP, "4155550123abc", true},
		{models.MethodOTP, "123456", true},
		{models.MethodOTP, "+1234567890123456", true},
		{models.MethodOTP, "+41 555 0123", true},
		{models.MethodOTP, "", true},
		{models.MethodFace, "anything", true},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.destination, func(t *testing.T) {
			err := Destination(tt.method, tt.destination)
			if (err != nil) != tt.wantErr {
				t.Errorf("Destination(%q, %q) error = %v, wantErr %v", tt.method, tt.destination, err, tt.wantErr)
			}
		})
	}
}

func TestDestination_PhoneMessage(t *testing.T) {
	err := Destination(models.MethodOTP, "12")

	var verrs Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("Expected Errors, got %v", err)
	}
	if got := verrs["destination"]; got != "destination must be a phone number of 7 to 15 digits" {
		t.Errorf("Unexpected message %q", got)
	}
}

func TestCode(t *testing.T) {
	tests := map[string]bool{
		"123456":  true,
		"000000":  true,
		"12345":   false,
		"1234567": false,
		"12a456":  false,
		"+12345":  false,
		"":        false,
	}

	for code, want := range tests {
		if got := Code(code); got != want {
			t.Errorf("Code(%q) = %v, want %v", code, got, want)
		}
	}
}

func TestErrors_Error(t *testing.T) {
	err := Errors{"question": "question is required", "options": "too few"}
	want := "validation failed: options: too few; question: question is required"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}

func TestPollUpdate(t *testing.T) {
	t.Run("question only", func(t *testing.T) {
		q, opts, err := PollUpdate("  New?  ", nil)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if q != "New?" || opts != nil {
			t.Errorf("Got %q %v", q, opts)
		}
	})

	t.Run("nothing to update", func(t *testing.T) {
		_, _, err := PollUpdate("   ", nil)
		var verrs Errors
		if !errors.As(err, &verrs) || verrs["question"] == "" {
			t.Errorf("Expected question error, got %v", err)
		}
	})

	t.Run("options keep ids and drop blanks", func(t *testing.T) {
		q, opts, err := PollUpdate("", []models.OptionInput{
			{ID: "a", Label: " Red "},
			{Label: ""},
			{Label: "Blue"},
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if q != "" {
			t.Errorf("Empty question should stay empty, got %q", q)
		}
		if len(opts) != 2 || opts[0].ID != "a" || opts[0].Label != "Red" || opts[1].Label != "Blue" {
			t.Errorf("Unexpected options %+v", opts)
		}
	})

	t.Run("too few options", func(t *testing.T) {
		_, _, err := PollUpdate("Q", []models.OptionInput{{Label: "Red"}, {Label: " "}})
		var verrs Errors
		if !errors.As(err, &verrs) || verrs["options"] == "" {
			t.Errorf("Expected options error, got %v", err)
		}
	})

	t.Run("empty list is not nil", func(t *testing.T) {
		_, _, err := PollUpdate("Q", []models.OptionInput{})
		if err == nil {
			t.Error("Expected error for an empty option list")
		}
	})

	t.Run("duplicates", func(t *testing.T) {
		_, _, err := PollUpdate("Q", []models.OptionInput{{Label: "Red"}, {ID: "x", Label: "Red"}})
		if err == nil {
			t.Error("Expected error for duplicate labels")
		}
	})
}
