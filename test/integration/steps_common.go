package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/doodlesbykumbi/directory-sync/pkg/server/middleware"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	response     *http.Response
	responseBody []byte
	authToken    string
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{tc: tc}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	// Background steps
	sc.Step(`^the directory sync server is running$`, s.theServerIsRunning)
	sc.Step(`^the local database is empty$`, s.theLocalDatabaseIsEmpty)
	sc.Step(`^I am authenticated as "([^"]*)"$`, s.iAmAuthenticatedAs)
	sc.Step(`^I am not authenticated$`, s.iAmNotAuthenticated)
	sc.Step(`^I present a token signed with "([^"]*)"$`, s.iPresentATokenSignedWith)

	// Request steps
	sc.Step(`^I GET "([^"]*)"$`, s.iGet)
	sc.Step(`^I POST "([^"]*)"$`, s.iPost)
	sc.Step(`^I POST "([^"]*)" with body:$`, s.iPostWithBody)

	// Response steps
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, s.theResponseFieldShouldBe)
	sc.Step(`^the response body should contain "([^"]*)"$`, s.theResponseBodyShouldContain)

	// Database steps
	sc.Step(`^(\d+) (users|groups) should exist$`, s.recordsShouldExist)
	sc.Step(`^user "([^"]*)" should exist with email "([^"]*)"$`, s.userShouldExistWithEmail)
	sc.Step(`^user "([^"]*)" should not exist$`, s.userShouldNotExist)
	sc.Step(`^user "([^"]*)" should be a member of group "([^"]*)"$`, s.userShouldBeMemberOf)
	sc.Step(`^group "([^"]*)" should be a subgroup of "([^"]*)"$`, s.groupShouldBeSubgroupOf)
	sc.Step(`^an audit message "([^"]*)" should have been recorded$`, s.auditMessageShouldHaveBeenRecorded)
}

// Background steps

func (s *StepsContext) theServerIsRunning() error {
	// Server is already running via TestContext
	return nil
}

func (s *StepsContext) theLocalDatabaseIsEmpty() error {
	return s.tc.DB.Exec(`TRUNCATE users, groups, group_users, group_subgroups, messages RESTART IDENTITY CASCADE`).Error
}

func (s *StepsContext) iAmAuthenticatedAs(subject string) error {
	token, err := middleware.IssueToken(TokenSecret, subject, time.Hour)
	if err != nil {
		return err
	}
	s.authToken = token
	return nil
}

func (s *StepsContext) iAmNotAuthenticated() error {
	s.authToken = ""
	return nil
}

func (s *StepsContext) iPresentATokenSignedWith(secret string) error {
	token, err := middleware.IssueToken(secret, "intruder", time.Hour)
	if err != nil {
		return err
	}
	s.authToken = token
	return nil
}

// Request steps

func (s *StepsContext) do(method, path string, body io.Reader) error {
	req, err := http.NewRequest(method, s.tc.ServerURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	s.response = resp
	s.responseBody, err = io.ReadAll(resp.Body)
	return err
}

func (s *StepsContext) iGet(path string) error {
	return s.do(http.MethodGet, path, nil)
}

func (s *StepsContext) iPost(path string) error {
	return s.do(http.MethodPost, path, nil)
}

func (s *StepsContext) iPostWithBody(path string, body *godog.DocString) error {
	return s.do(http.MethodPost, path, bytes.NewBufferString(body.Content))
}

// Response steps

func (s *StepsContext) theResponseStatusShouldBe(expectedStatus int) error {
	if s.response == nil {
		return fmt.Errorf("no response received")
	}
	if s.response.StatusCode != expectedStatus {
		return fmt.Errorf("expected status %d, got %d: %s", expectedStatus, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseFieldShouldBe(field, expected string) error {
	var body map[string]any
	if err := json.Unmarshal(s.responseBody, &body); err != nil {
		return fmt.Errorf("response is not a JSON object: %w", err)
	}
	value, ok := body[field]
	if !ok {
		return fmt.Errorf("response has no field %q: %s", field, string(s.responseBody))
	}
	if got := fmt.Sprint(value); got != expected {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, got)
	}
	return nil
}

func (s *StepsContext) theResponseBodyShouldContain(expected string) error {
	if !strings.Contains(string(s.responseBody), expected) {
		return fmt.Errorf("expected response to contain %q, got %s", expected, string(s.responseBody))
	}
	return nil
}

// Database steps

func (s *StepsContext) recordsShouldExist(expected int, table string) error {
	var count int64
	if err := s.tc.DB.Table(table).Count(&count).Error; err != nil {
		return err
	}
	if count != int64(expected) {
		return fmt.Errorf("expected %d %s, found %d", expected, table, count)
	}
	return nil
}

func (s *StepsContext) userShouldExistWithEmail(login, email string) error {
	var got string
	err := s.tc.DB.Raw(`SELECT email FROM users WHERE login = ?`, login).Row().Scan(&got)
	if err != nil {
		return fmt.Errorf("user %s not found: %w", login, err)
	}
	if got != email {
		return fmt.Errorf("expected user %s to have email %q, got %q", login, email, got)
	}
	return nil
}

func (s *StepsContext) userShouldNotExist(login string) error {
	var count int64
	if err := s.tc.DB.Table("users").Where("login = ?", login).Count(&count).Error; err != nil {
		return err
	}
	if count != 0 {
		return fmt.Errorf("expected user %s not to exist", login)
	}
	return nil
}

func (s *StepsContext) userShouldBeMemberOf(login, group string) error {
	var count int64
	err := s.tc.DB.Raw(`
		SELECT count(*) FROM group_users gu
		JOIN users u ON u.id = gu.user_id
		JOIN groups g ON g.id = gu.group_id
		WHERE u.login = ? AND g.name = ?
	`, login, group).Row().Scan(&count)
	if err != nil {
		return err
	}
	if count != 1 {
		return fmt.Errorf("expected user %s to be a member of %s", login, group)
	}
	return nil
}

func (s *StepsContext) groupShouldBeSubgroupOf(child, parent string) error {
	var count int64
	err := s.tc.DB.Raw(`
		SELECT count(*) FROM group_subgroups gs
		JOIN groups c ON c.id = gs.child_id
		JOIN groups p ON p.id = gs.parent_id
		WHERE c.name = ? AND p.name = ?
	`, child, parent).Row().Scan(&count)
	if err != nil {
		return err
	}
	if count != 1 {
		return fmt.Errorf("expected group %s to be a subgroup of %s", child, parent)
	}
	return nil
}

func (s *StepsContext) auditMessageShouldHaveBeenRecorded(msgid string) error {
	var count int64
	if err := s.tc.DB.Table("messages").Where("msgid = ?", msgid).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("no audit message with msgid %q", msgid)
	}
	return nil
}
