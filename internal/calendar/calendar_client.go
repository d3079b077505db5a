package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"replypilot/internal/logger"
	"replypilot/internal/model"
)

// Client talks to the Google Calendar API on behalf of one user.
type Client struct {
	client *calendar.Service
	logger *logger.Logger
}

const primaryCalendar = "primary"

func NewClient(accessToken string, logger *logger.Logger) (*Client, error) {
	httpClient := &http.Client{
		Transport: &oauth2Transport{token: accessToken},
	}

	calendarService, err := calendar.NewService(context.Background(), option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{
		client: calendarService,
		logger: logger,
	}, nil
}

type oauth2Transport struct {
	token string
}

func (t *oauth2Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.token)
	return http.DefaultTransport.RoundTrip(req)
}

// CheckMeeting compares a detected meeting against the user's primary
// calendar. Any event overlapping the meeting window is a conflict; an event
// with the same title and start time is a duplicate.
func (c *Client) CheckMeeting(ctx context.Context, meeting *model.Meeting) (model.MeetingFlags, error) {
	var flags model.MeetingFlags

	start, end, err := meetingWindow(meeting)
	if err != nil {
		return flags, err
	}

	events, err := c.client.Events.List(primaryCalendar).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).Do()
	if err != nil {
		return flags, fmt.Errorf("failed to list calendar events: %w", err)
	}

	for _, event := range events.Items {
		if event.Start == nil || event.Start.DateTime == "" {
			continue
		}
		flags.HasConflict = true
		eventStart, err := time.Parse(time.RFC3339, event.Start.DateTime)
		if err != nil {
			continue
		}
		if event.Summary == meeting.Title && eventStart.Equal(start) {
			flags.IsDuplicate = true
		}
	}

	c.logger.Info("Checked meeting against calendar:", meeting.Title,
		"conflict:", flags.HasConflict, "duplicate:", flags.IsDuplicate)
	return flags, nil
}

// CreateEvent inserts the meeting into the user's primary calendar.
func (c *Client) CreateEvent(ctx context.Context, meeting *model.Meeting, subject string) error {
	start, end, err := meetingWindow(meeting)
	if err != nil {
		return err
	}

	title := meeting.Title
	if title == "" {
		title = subject
	}

	event := &calendar.Event{
		Summary:     title,
		Location:    meeting.Location,
		Description: "Created from email: " + subject,
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}
	for _, attendee := range meeting.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: attendee})
	}

	created, err := c.client.Events.Insert(primaryCalendar, event).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to create calendar event: %w", err)
	}

	c.logger.Info("Created calendar event:", created.Id)
	return nil
}

// meetingWindow parses the meeting's time range, defaulting the end to one
// hour after the start when the extractor left it out.
func meetingWindow(meeting *model.Meeting) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, meeting.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid meeting start time: %w", err)
	}

	end := start.Add(time.Hour)
	if meeting.EndTime != "" {
		if parsed, err := time.Parse(time.RFC3339, meeting.EndTime); err == nil && parsed.After(start) {
			end = parsed
		}
	}
	return start, end, nil
}
