package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edura/edura-go-api/internal/models"
	"github.com/edura/edura-go-api/internal/service"
)

func TestCanSubmitAroundDeadline(t *testing.T) {
	due := time.Date(2026, time.March, 15, 23, 59, 0, 0, time.UTC)
	assignment := models.Assignment{DueAt: due}

	require.True(t, service.CanSubmit(assignment, due.Add(-time.Second)))
	require.True(t, service.CanSubmit(assignment, due))
	require.False(t, service.CanSubmit(assignment, due.Add(time.Second)))
}
