package integration

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"
)

// TestDirectorySyncFeatures runs features/*.feature against a PostgreSQL
// container and an adsync server. Set INTEGRATION_TEST=1 to enable it and
// GODOG_TAGS to run a subset, e.g. GODOG_TAGS=@memberships.
func TestDirectorySyncFeatures(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") == "" {
		t.Skip("directory sync features need docker; set INTEGRATION_TEST=1")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tc, err := NewTestContext(ctx)
	if err != nil {
		t.Fatalf("start database and adsync server: %v", err)
	}
	defer tc.Close(ctx)

	suite := godog.TestSuite{
		Name: "directory-sync",
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			NewStepsContext(tc).RegisterSteps(sc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Tags:     os.Getenv("GODOG_TAGS"),
			Strict:   true,
			TestingT: t,
		},
	}

	if status := suite.Run(); status != 0 {
		t.Fatalf("directory sync features failed with status %d", status)
	}
}
