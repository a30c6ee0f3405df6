package history

import (
	"context"
	"math/rand"
	"testing"
	"time"
	"wabrowser/lib/scrapers/whatsapp"
	"wabrowser/lib/testutil"
	"wabrowser/services/history/db"

	"github.com/stretchr/testify/require"
)

func testMessages() []whatsapp.Message {
	messages := []whatsapp.Message{
		{
			Chat:      "Alice Smith",
			Sender:    "Alice Smith",
			Text:      "hello there",
			TimeLabel: "12:48, 24/4/2023",
			SentAt:    time.Date(2023, 4, 24, 12, 48, 0, 0, time.UTC),
		},
		{
			Chat:      "Alice Smith",
			Sender:    "You",
			Text:      "hi! how are you",
			TimeLabel: "12:50, 24/4/2023",
			SentAt:    time.Date(2023, 4, 24, 12, 50, 0, 0, time.UTC),
			Outgoing:  true,
		},
		{
			Chat:      "Work Group",
			Sender:    "Carol",
			Text:      "report attached",
			TimeLabel: "09:15, 25/4/2023",
			SentAt:    time.Date(2023, 4, 25, 9, 15, 0, 0, time.UTC),
			Attachment: &whatsapp.Attachment{
				Name: "report.pdf",
				Kind: "PDF",
			},
		},
	}
	for i := range messages {
		messages[i].ComputeID()
	}
	return messages
}

func TestRecordAndRecent(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "history",
		DbSchema: db.Schema,
	})
	defer cleanup()
	svc := NewService(res.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	messages := testMessages()
	require.NoError(t, svc.Record(ctx, messages))
	// overlapping snapshot, already-seen rows are skipped
	require.NoError(t, svc.Record(ctx, messages))

	got, err := svc.Recent(ctx, "Alice Smith", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "hello there", got[0].Text)
	require.Equal(t, "hi! how are you", got[1].Text)
	require.True(t, got[1].Outgoing)

	group, err := svc.Recent(ctx, "Work Group", 10)
	require.NoError(t, err)
	require.Len(t, group, 1)
	require.NotNil(t, group[0].Attachment)
	require.Equal(t, "report.pdf", group[0].Attachment.Name)

	none, err := svc.Recent(ctx, "Nobody", 10)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestRecentLimit(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "history",
		DbSchema: db.Schema,
	})
	defer cleanup()
	svc := NewService(res.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	require.NoError(t, svc.Record(ctx, testMessages()))

	got, err := svc.Recent(ctx, "Alice Smith", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "hi! how are you", got[0].Text, "the limit keeps the newest rows")
}

func TestRecordLargeBatch(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "history",
		DbSchema: db.Schema,
	})
	defer cleanup()
	svc := NewService(res.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	rndm := rand.New(rand.NewSource(42))
	var messages []whatsapp.Message
	for i := 0; i < 50; i++ {
		msg := whatsapp.Message{
			Chat:      "Bulk",
			Sender:    "Bulk",
			Text:      testutil.RandomString(rndm, 32),
			TimeLabel: "10:00",
		}
		msg.ComputeID()
		messages = append(messages, msg)
	}
	require.NoError(t, svc.Record(ctx, messages))

	got, err := svc.Recent(ctx, "Bulk", 10)
	require.NoError(t, err)
	require.Len(t, got, 10)
	require.Equal(t, messages[len(messages)-1].Text, got[len(got)-1].Text)
}

func TestChats(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "history",
		DbSchema: db.Schema,
	})
	defer cleanup()
	svc := NewService(res.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	require.NoError(t, svc.Record(ctx, testMessages()))

	stats, err := svc.Chats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	byName := map[string]int64{}
	for _, s := range stats {
		byName[s.Chat] = s.Messages
	}
	require.Equal(t, int64(2), byName["Alice Smith"])
	require.Equal(t, int64(1), byName["Work Group"])
}

func TestPrune(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "history",
		DbSchema: db.Schema,
	})
	defer cleanup()
	svc := NewService(res.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	require.NoError(t, svc.Record(ctx, testMessages()))

	pruned, err := svc.Prune(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(3), pruned)

	stats, err := svc.Chats(ctx)
	require.NoError(t, err)
	require.Empty(t, stats)
}
