package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"sync"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/LionTheUnknown/GLIM-sub000/models"
)

var (
	messagingClient *messaging.Client
	fcmOnce         sync.Once
	fcmInitError    error
)

// InitFirebase sets up the FCM messaging client. Safe to skip: every notify
// function degrades to a no-op when the client is absent.
func InitFirebase(credentialsPath string) error {
	fcmOnce.Do(func() {
		ctx := context.Background()

		app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
		if err != nil {
			fcmInitError = err
			log.Printf("[FCM] Failed to init Firebase app: %v", err)
			return
		}

		messagingClient, err = app.Messaging(ctx)
		if err != nil {
			fcmInitError = err
			log.Printf("[FCM] Failed to get messaging client: %v", err)
			return
		}

		log.Println("[FCM] Messaging client initialized")
	})
	return fcmInitError
}

// NotifyPostReaction pushes "X liked your post" to the post author. Dislikes
// and self-reactions stay silent. Intended to run on its own goroutine.
func NotifyPostReaction(db *sql.DB, postID, reactorID int, rtype models.ReactionType) {
	if messagingClient == nil || rtype != models.ReactionLike {
		return
	}

	var authorID int
	var postText string
	err := db.QueryRow(`SELECT author_id, content_text FROM posts WHERE id = $1`, postID).
		Scan(&authorID, &postText)
	if err != nil {
		log.Printf("NotifyPostReaction post lookup error: %v", err)
		return
	}
	if authorID == reactorID {
		return
	}

	title := fmt.Sprintf("%s liked your post", displayNameOf(db, reactorID))
	sendToUser(db, authorID, title, truncate(postText), map[string]string{
		"type":       "post_reaction",
		"post_id":    strconv.Itoa(postID),
		"reactor_id": strconv.Itoa(reactorID),
	})
}

// NotifyPostComment pushes a new-comment notification to the post author.
func NotifyPostComment(db *sql.DB, postID, commenterID int, commentText string) {
	if messagingClient == nil {
		return
	}

	var authorID int
	err := db.QueryRow(`SELECT author_id FROM posts WHERE id = $1`, postID).Scan(&authorID)
	if err != nil {
		log.Printf("NotifyPostComment post lookup error: %v", err)
		return
	}
	if authorID == commenterID {
		return
	}

	title := fmt.Sprintf("%s commented on your post", displayNameOf(db, commenterID))
	sendToUser(db, authorID, title, truncate(commentText), map[string]string{
		"type":         "post_comment",
		"post_id":      strconv.Itoa(postID),
		"commenter_id": strconv.Itoa(commenterID),
	})
}

// NotifyCommentReply pushes a reply notification to the parent comment's
// author.
func NotifyCommentReply(db *sql.DB, parentCommentID, replierID int, replyText string) {
	if messagingClient == nil {
		return
	}

	var parentAuthorID int
	err := db.QueryRow(`SELECT author_id FROM comments WHERE id = $1`, parentCommentID).
		Scan(&parentAuthorID)
	if err != nil {
		log.Printf("NotifyCommentReply comment lookup error: %v", err)
		return
	}
	if parentAuthorID == replierID {
		return
	}

	title := fmt.Sprintf("%s replied to your comment", displayNameOf(db, replierID))
	sendToUser(db, parentAuthorID, title, truncate(replyText), map[string]string{
		"type":       "comment_reply",
		"comment_id": strconv.Itoa(parentCommentID),
		"replier_id": strconv.Itoa(replierID),
	})
}

func displayNameOf(db *sql.DB, userID int) string {
	var name string
	err := db.QueryRow(`SELECT display_name FROM users WHERE id = $1`, userID).Scan(&name)
	if err != nil {
		log.Printf("displayNameOf error for user %d: %v", userID, err)
		return "Someone"
	}
	return name
}

func truncate(s string) string {
	if len(s) > 100 {
		return s[:97] + "..."
	}
	return s
}

// sendToUser fans a multicast message out to all of a user's registered
// device tokens, pruning tokens FCM reports as unregistered.
func sendToUser(db *sql.DB, userID int, title, body string, data map[string]string) {
	rows, err := db.Query(`
		SELECT token
		FROM fcm_tokens
		WHERE user_id = $1
		  AND token <> ''`,
		userID)
	if err != nil {
		log.Printf("[FCM] Error fetching tokens for user %d: %v", userID, err)
		return
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			log.Printf("[FCM] Error scanning token: %v", err)
			continue
		}
		tokens = append(tokens, token)
	}
	if len(tokens) == 0 {
		return
	}

	message := &messaging.MulticastMessage{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:   data,
		Tokens: tokens,
	}

	response, err := messagingClient.SendEachForMulticast(context.Background(), message)
	if err != nil {
		log.Printf("[FCM] Multicast send failed: %v", err)
		return
	}

	for i, resp := range response.Responses {
		if resp.Success {
			continue
		}
		if messaging.IsUnregistered(resp.Error) {
			if _, err := db.Exec(`DELETE FROM fcm_tokens WHERE token = $1`, tokens[i]); err != nil {
				log.Printf("[FCM] Failed to prune dead token: %v", err)
			}
		} else {
			log.Printf("[FCM] Send error for user %d: %v", userID, resp.Error)
		}
	}

	log.Printf("[FCM] Notified user %d | success=%d failure=%d",
		userID, response.SuccessCount, response.FailureCount)
}
