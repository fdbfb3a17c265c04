package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/veltamail/veltamail-backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MessageRepositoryTestSuite is the test suite for MessageRepository
type MessageRepositoryTestSuite struct {
	suite.Suite
	db      *gorm.DB
	repo    MessageRepository
	domain  *models.Domain
	mailbox *models.Mailbox
}

// SetupSuite runs once before all tests
func (s *MessageRepositoryTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err)

	db.Exec("PRAGMA foreign_keys = ON")

	err = db.AutoMigrate(&models.Domain{}, &models.Mailbox{}, &models.Message{}, &models.MagicLinkToken{})
	require.NoError(s.T(), err)

	s.db = db
	s.repo = NewMessageRepository(db)
}

// TearDownSuite runs once after all tests
func (s *MessageRepositoryTestSuite) TearDownSuite() {
	sqlDB, _ := s.db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// SetupTest runs before each test - clean up data and create fixtures
func (s *MessageRepositoryTestSuite) SetupTest() {
	s.db.Exec("DELETE FROM magic_link_tokens")
	s.db.Exec("DELETE FROM messages")
	s.db.Exec("DELETE FROM mailboxes")
	s.db.Exec("DELETE FROM domains")

	s.domain = &models.Domain{Name: "test.com", IsActive: true}
	err := s.db.Create(s.domain).Error
	require.NoError(s.T(), err)

	s.mailbox = &models.Mailbox{
		LocalPart:   "inbox",
		DomainID:    s.domain.ID,
		FullAddress: "inbox@test.com",
		IsActive:    true,
	}
	err = s.db.Create(s.mailbox).Error
	require.NoError(s.T(), err)
}

// TestMessageRepositoryTestSuite runs the test suite
func TestMessageRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(MessageRepositoryTestSuite))
}

// createMessage inserts a message with a specific received_at for ordering tests
func (s *MessageRepositoryTestSuite) createMessage(subject string, receivedAt time.Time) *models.Message {
	message := &models.Message{
		MailboxID:   s.mailbox.ID,
		SenderEmail: "sender@external.com",
		SenderName:  "Sender",
		Subject:     subject,
		Snippet:     "snippet of " + subject,
		BodyText:    "body of " + subject,
		ReceivedAt:  receivedAt,
	}
	err := s.db.Create(message).Error
	require.NoError(s.T(), err)
	return message
}

// ==================== Create Tests ====================

func (s *MessageRepositoryTestSuite) TestCreate_Success() {
	// Arrange
	message := &models.Message{
		MailboxID:   s.mailbox.ID,
		SenderEmail: "sender@external.com",
		SenderName:  "Test Sender",
		Subject:     "Hello",
		Snippet:     "Hello there",
		BodyText:    "Hello there, this is a test.",
		BodyHTML:    "<p>Hello there, this is a test.</p>",
		RawPath:     "2026/08/abc123.eml",
	}

	// Act
	err := s.repo.Create(context.Background(), message)

	// Assert
	assert.NoError(s.T(), err)
	assert.NotZero(s.T(), message.ID)
	assert.NotZero(s.T(), message.ReceivedAt)
	assert.False(s.T(), message.IsRead)
}

func (s *MessageRepositoryTestSuite) TestCreate_PersistsRawPath() {
	// Arrange
	message := &models.Message{
		MailboxID:   s.mailbox.ID,
		SenderEmail: "sender@external.com",
		Subject:     "archived",
		RawPath:     "2026/08/deadbeef.eml",
	}

	// Act
	err := s.repo.Create(context.Background(), message)
	require.NoError(s.T(), err)

	// Assert
	result, err := s.repo.GetByID(context.Background(), message.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "2026/08/deadbeef.eml", result.RawPath)
}

// ==================== GetByID Tests ====================

func (s *MessageRepositoryTestSuite) TestGetByID_Found() {
	// Arrange
	message := s.createMessage("find me", time.Now())

	// Act
	result, err := s.repo.GetByID(context.Background(), message.ID)

	// Assert
	assert.NoError(s.T(), err)
	assert.NotNil(s.T(), result)
	assert.Equal(s.T(), "find me", result.Subject)
	assert.Equal(s.T(), s.mailbox.ID, result.MailboxID)
}

func (s *MessageRepositoryTestSuite) TestGetByID_NotFound() {
	// Act
	result, err := s.repo.GetByID(context.Background(), 99999)

	// Assert
	assert.Error(s.T(), err)
	assert.ErrorIs(s.T(), err, ErrNotFound)
	assert.Nil(s.T(), result)
}

// ==================== ListByMailbox Tests ====================

func (s *MessageRepositoryTestSuite) TestListByMailbox_OrderedNewestFirst() {
	// Arrange
	base := time.Now().Add(-time.Hour)
	s.createMessage("oldest", base)
	s.createMessage("middle", base.Add(10*time.Minute))
	s.createMessage("newest", base.Add(20*time.Minute))

	// Act
	results, total, err := s.repo.ListByMailbox(context.Background(), s.mailbox.ID, 10, 0)

	// Assert
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), int64(3), total)
	require.Len(s.T(), results, 3)
	assert.Equal(s.T(), "newest", results[0].Subject)
	assert.Equal(s.T(), "middle", results[1].Subject)
	assert.Equal(s.T(), "oldest", results[2].Subject)
}

func (s *MessageRepositoryTestSuite) TestListByMailbox_Pagination() {
	// Arrange
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		s.createMessage("page", base.Add(time.Duration(i)*time.Minute))
	}

	// Act
	page1, total, err := s.repo.ListByMailbox(context.Background(), s.mailbox.ID, 2, 0)
	require.NoError(s.T(), err)
	page2, _, err := s.repo.ListByMailbox(context.Background(), s.mailbox.ID, 2, 2)
	require.NoError(s.T(), err)

	// Assert
	assert.Equal(s.T(), int64(5), total)
	assert.Len(s.T(), page1, 2)
	assert.Len(s.T(), page2, 2)
	assert.NotEqual(s.T(), page1[0].ID, page2[0].ID)
}

func (s *MessageRepositoryTestSuite) TestListByMailbox_ExcludesBodies() {
	// Arrange
	s.createMessage("light", time.Now())

	// Act
	results, _, err := s.repo.ListByMailbox(context.Background(), s.mailbox.ID, 10, 0)

	// Assert - list items carry the snippet but not the full bodies
	assert.NoError(s.T(), err)
	require.Len(s.T(), results, 1)
	assert.Equal(s.T(), "snippet of light", results[0].Snippet)
}

func (s *MessageRepositoryTestSuite) TestListByMailbox_Empty() {
	// Act
	results, total, err := s.repo.ListByMailbox(context.Background(), s.mailbox.ID, 10, 0)

	// Assert
	assert.NoError(s.T(), err)
	assert.Zero(s.T(), total)
	assert.Empty(s.T(), results)
}

func (s *MessageRepositoryTestSuite) TestListByMailbox_IsolatedPerMailbox() {
	// Arrange
	other := &models.Mailbox{
		LocalPart:   "other",
		DomainID:    s.domain.ID,
		FullAddress: "other@test.com",
	}
	err := s.db.Create(other).Error
	require.NoError(s.T(), err)

	s.createMessage("mine", time.Now())
	otherMessage := &models.Message{
		MailboxID:   other.ID,
		SenderEmail: "x@y.com",
		Subject:     "theirs",
	}
	err = s.db.Create(otherMessage).Error
	require.NoError(s.T(), err)

	// Act
	results, total, err := s.repo.ListByMailbox(context.Background(), s.mailbox.ID, 10, 0)

	// Assert
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), total)
	require.Len(s.T(), results, 1)
	assert.Equal(s.T(), "mine", results[0].Subject)
}

// ==================== MarkAsRead Tests ====================

func (s *MessageRepositoryTestSuite) TestMarkAsRead_Success() {
	// Arrange
	message := s.createMessage("unread", time.Now())
	require.False(s.T(), message.IsRead)

	// Act
	err := s.repo.MarkAsRead(context.Background(), message.ID)

	// Assert
	assert.NoError(s.T(), err)

	result, err := s.repo.GetByID(context.Background(), message.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), result.IsRead)
}

func (s *MessageRepositoryTestSuite) TestMarkAsRead_NotFound() {
	// Act
	err := s.repo.MarkAsRead(context.Background(), 99999)

	// Assert
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *MessageRepositoryTestSuite) TestMarkAsRead_Idempotent() {
	// Arrange
	message := s.createMessage("twice", time.Now())
	err := s.repo.MarkAsRead(context.Background(), message.ID)
	require.NoError(s.T(), err)

	// Act - marking again succeeds and keeps the flag set
	err = s.repo.MarkAsRead(context.Background(), message.ID)

	// Assert
	assert.NoError(s.T(), err)

	result, err := s.repo.GetByID(context.Background(), message.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), result.IsRead)
}

// ==================== Delete Tests ====================

func (s *MessageRepositoryTestSuite) TestDelete_Success() {
	// Arrange
	message := s.createMessage("doomed", time.Now())

	// Act
	err := s.repo.Delete(context.Background(), message.ID)

	// Assert
	assert.NoError(s.T(), err)

	_, err = s.repo.GetByID(context.Background(), message.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *MessageRepositoryTestSuite) TestDelete_NotFound() {
	// Act
	err := s.repo.Delete(context.Background(), 99999)

	// Assert
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

// ==================== CountUnread Tests ====================

func (s *MessageRepositoryTestSuite) TestCountUnread_MixedMessages() {
	// Arrange
	m1 := s.createMessage("unread 1", time.Now())
	s.createMessage("unread 2", time.Now())
	err := s.repo.MarkAsRead(context.Background(), m1.ID)
	require.NoError(s.T(), err)

	// Act
	count, err := s.repo.CountUnread(context.Background(), s.mailbox.ID)

	// Assert
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), count)
}

func (s *MessageRepositoryTestSuite) TestCountUnread_EmptyMailbox() {
	// Act
	count, err := s.repo.CountUnread(context.Background(), s.mailbox.ID)

	// Assert
	assert.NoError(s.T(), err)
	assert.Zero(s.T(), count)
}

// ==================== CRUD Round-Trip Test ====================

func (s *MessageRepositoryTestSuite) TestCRUD_RoundTrip() {
	// Create
	message := &models.Message{
		MailboxID:   s.mailbox.ID,
		SenderEmail: "roundtrip@external.com",
		Subject:     "round trip",
		BodyText:    "full cycle",
		RawPath:     "2026/08/roundtrip.eml",
	}
	err := s.repo.Create(context.Background(), message)
	require.NoError(s.T(), err)
	require.NotZero(s.T(), message.ID)

	// Read
	retrieved, err := s.repo.GetByID(context.Background(), message.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "round trip", retrieved.Subject)
	assert.Equal(s.T(), "2026/08/roundtrip.eml", retrieved.RawPath)

	// Unread count reflects the new message
	count, err := s.repo.CountUnread(context.Background(), s.mailbox.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), count)

	// Mark as read
	err = s.repo.MarkAsRead(context.Background(), message.ID)
	require.NoError(s.T(), err)

	count, err = s.repo.CountUnread(context.Background(), s.mailbox.ID)
	require.NoError(s.T(), err)
	assert.Zero(s.T(), count)

	// Delete
	err = s.repo.Delete(context.Background(), message.ID)
	require.NoError(s.T(), err)

	_, err = s.repo.GetByID(context.Background(), message.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}
