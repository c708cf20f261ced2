package chat

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classmate-ai/backend/handlers/course"
	"github.com/classmate-ai/backend/model"
	"github.com/classmate-ai/backend/services"
	"github.com/classmate-ai/backend/utils/cache"
	"github.com/classmate-ai/backend/utils/middleware"
	"github.com/classmate-ai/backend/utils/response"
	"github.com/classmate-ai/backend/utils/validation"
)

const (
	chatRateLimitPerMinute = 20
	historyWindow          = 12
)

// ChatHandler handles course-scoped chat requests
type ChatHandler struct {
	db         *gorm.DB
	engine     *services.ChatEngine
	retrieval  *services.RetrievalService // nil when retrieval is disabled
	redisCache *cache.RedisCache          // nil when Redis is unavailable
	topK       int
	validator  *validation.Validator
}

// NewChatHandler creates a new chat handler
func NewChatHandler(db *gorm.DB, engine *services.ChatEngine, retrieval *services.RetrievalService, redisCache *cache.RedisCache, topK int) *ChatHandler {
	if topK <= 0 {
		topK = 8
	}
	return &ChatHandler{
		db:         db,
		engine:     engine,
		retrieval:  retrieval,
		redisCache: redisCache,
		topK:       topK,
		validator:  validation.NewValidator(),
	}
}

// ChatRequest represents one user chat turn
type ChatRequest struct {
	Message        string `json:"message" validate:"required,min=1,max=8000"`
	ConversationID string `json:"conversation_id" validate:"omitempty,uuid4"`
}

// ChatResponse is the assistant reply with its citations
type ChatResponse struct {
	Text           string          `json:"text"`
	Citations      model.Citations `json:"citations"`
	ConversationID string          `json:"conversation_id"`
}

// Chat handles POST /api/v1/courses/:courseId/chat.
//
// Nothing is persisted when the LLM call fails, so a retried request doesn't
// leave orphaned user messages behind.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	owned, err := course.OwnedCourse(c, h.db, c.Params("courseId"))
	if err != nil {
		return err
	}
	user, _ := middleware.GetUser(c)

	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return response.ValidationError(c, err)
	}

	// Per-user rate limit; skipped when Redis is down
	if h.redisCache != nil && user != nil {
		key := fmt.Sprintf("chat_rate:%s", user.ID)
		count, rlErr := h.redisCache.IncrementWithTTL(c.Context(), key, time.Minute)
		if rlErr == nil && count > chatRateLimitPerMinute {
			return response.TooManyRequests(c, "Chat rate limit reached. Please wait a moment.")
		}
	}

	// Resolve or stage the conversation
	var conversation model.ChatConversation
	newConversation := false
	if req.ConversationID != "" {
		convoID, parseErr := uuid.Parse(req.ConversationID)
		if parseErr != nil {
			return response.BadRequest(c, "Invalid conversation_id")
		}
		if err := h.db.Where("id = ? AND course_id = ?", convoID, owned.ID).First(&conversation).Error; err != nil {
			return response.NotFound(c, "Conversation not found")
		}
	} else {
		conversation = model.ChatConversation{CourseID: owned.ID}
		newConversation = true
	}

	// Conversational context: last N messages, oldest first. Loaded before
	// the new user message is stored so it doesn't appear twice.
	var history []services.ChatHistoryItem
	if !newConversation {
		var recent []model.ChatMessage
		if err := h.db.
			Where("conversation_id = ?", conversation.ID).
			Order("created_at DESC").
			Limit(historyWindow).
			Find(&recent).Error; err != nil {
			return response.InternalServerError(c, "Failed to load conversation history")
		}
		for i := len(recent) - 1; i >= 0; i-- {
			history = append(history, services.ChatHistoryItem{
				Role:    string(recent[i].Role),
				Content: recent[i].Content,
			})
		}
	}

	// Retrieval is best-effort: a broken search degrades to an ungrounded
	// answer instead of failing the chat turn.
	var hits []services.RagHit
	if h.retrieval != nil {
		retrieved, retErr := h.retrieval.Retrieve(c.Context(), owned.ID, req.Message, h.topK, nil)
		if retErr != nil {
			log.Printf("Chat: retrieval failed for course %s: %v", owned.ID, retErr)
		} else {
			hits = retrieved
		}
	}

	if newConversation {
		conversation.Title = h.engine.GenerateTitle(c.Context(), owned.Name, req.Message)
	}

	reply, citations, err := h.engine.GenerateReply(c.Context(), services.GenerateReplyInput{
		CourseName:        owned.Name,
		CourseDescription: owned.Description,
		History:           history,
		UserMessage:       req.Message,
		Hits:              hits,
	})
	if err != nil {
		if errors.Is(err, services.ErrChatNotConfigured) {
			return response.NotImplemented(c, err.Error())
		}
		log.Printf("Chat: LLM request failed for course %s: %v", owned.ID, err)
		return response.BadGateway(c, "LLM request failed")
	}

	now := time.Now().UTC()
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if newConversation {
			if err := tx.Create(&conversation).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(&model.ChatMessage{
			ConversationID: conversation.ID,
			Role:           model.MessageRoleUser,
			Content:        req.Message,
		}).Error; err != nil {
			return err
		}
		if err := tx.Create(&model.ChatMessage{
			ConversationID: conversation.ID,
			Role:           model.MessageRoleAssistant,
			Content:        reply,
			Citations:      citations,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&model.ChatConversation{}).
			Where("id = ?", conversation.ID).
			Update("last_message_at", &now).Error
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to store conversation")
	}

	return response.Success(c, ChatResponse{
		Text:           reply,
		Citations:      citations,
		ConversationID: conversation.ID.String(),
	})
}

// ListConversations handles GET /api/v1/courses/:courseId/conversations
func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	owned, err := course.OwnedCourse(c, h.db, c.Params("courseId"))
	if err != nil {
		return err
	}

	var conversations []model.ChatConversation
	if err := h.db.
		Where("course_id = ?", owned.ID).
		Order("last_message_at DESC").
		Find(&conversations).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch conversations")
	}
	return response.Success(c, conversations)
}

// ownedConversation loads a conversation after verifying the user owns the
// course it belongs to.
func (h *ChatHandler) ownedConversation(c *fiber.Ctx) (*model.ChatConversation, error) {
	user, ok := middleware.GetUser(c)
	if !ok {
		return nil, response.Unauthorized(c, "")
	}

	conversationID, parseErr := uuid.Parse(c.Params("conversationId"))
	if parseErr != nil {
		return nil, response.BadRequest(c, "Invalid conversation id")
	}

	var conversation model.ChatConversation
	err := h.db.
		Joins("JOIN courses ON courses.id = chat_conversations.course_id").
		Where("chat_conversations.id = ? AND courses.user_id = ?", conversationID, user.ID).
		First(&conversation).Error
	if err != nil {
		return nil, response.NotFound(c, "Conversation not found")
	}
	return &conversation, nil
}

// ListMessages handles GET /api/v1/conversations/:conversationId/messages
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	conversation, err := h.ownedConversation(c)
	if err != nil {
		return err
	}

	var messages []model.ChatMessage
	if err := h.db.
		Where("conversation_id = ?", conversation.ID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch messages")
	}
	return response.Success(c, messages)
}

// DeleteConversation handles DELETE /api/v1/conversations/:conversationId
func (h *ChatHandler) DeleteConversation(c *fiber.Ctx) error {
	conversation, err := h.ownedConversation(c)
	if err != nil {
		return err
	}

	if err := h.db.Select("Messages").Delete(conversation).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete conversation")
	}
	return response.NoContent(c)
}
