package services

import (
	"database/sql"
	"log"

	"github.com/lib/pq"

	"github.com/LionTheUnknown/GLIM-sub000/models"
)

// ReactionMetadata is the per-target tally plus the viewer's own reaction
// (nil when anonymous or when the viewer has not reacted).
type ReactionMetadata struct {
	Counts       models.ReactionCounts `json:"reaction_counts"`
	UserReaction *models.ReactionType  `json:"user_reaction_type"`
}

// The aggregator never fails the caller: a storage error here is logged and
// absorbed into zero counts so the primary entity can still be served. This
// degrade-gracefully contract is deliberate; callers rely on it.

// FetchPostMetadata returns the tally for one post. viewerID 0 means
// anonymous.
func FetchPostMetadata(db *sql.DB, postID, viewerID int) ReactionMetadata {
	return FetchBatchPostMetadata(db, []int{postID}, viewerID)[postID]
}

// FetchBatchPostMetadata returns tallies for many posts in two queries (one
// GROUP BY for counts, one viewer lookup), regardless of len(postIDs). Every
// requested id is present in the result, absent targets as zero values.
func FetchBatchPostMetadata(db *sql.DB, postIDs []int, viewerID int) map[int]ReactionMetadata {
	return fetchBatchMetadata(db, "post_id", postIDs, viewerID)
}

// FetchCommentMetadata returns the tally for one comment.
func FetchCommentMetadata(db *sql.DB, commentID, viewerID int) ReactionMetadata {
	return FetchBatchCommentMetadata(db, []int{commentID}, viewerID)[commentID]
}

// FetchBatchCommentMetadata is the comment counterpart of
// FetchBatchPostMetadata.
func FetchBatchCommentMetadata(db *sql.DB, commentIDs []int, viewerID int) map[int]ReactionMetadata {
	return fetchBatchMetadata(db, "comment_id", commentIDs, viewerID)
}

func fetchBatchMetadata(db *sql.DB, column string, ids []int, viewerID int) map[int]ReactionMetadata {
	result := make(map[int]ReactionMetadata, len(ids))
	for _, id := range ids {
		result[id] = ReactionMetadata{}
	}
	if len(ids) == 0 {
		return result
	}

	rows, err := db.Query(
		`SELECT `+column+`, reaction_type, COUNT(*)
		 FROM reactions
		 WHERE `+column+` = ANY($1)
		 GROUP BY `+column+`, reaction_type`,
		pq.Array(ids))
	if err != nil {
		log.Printf("fetchBatchMetadata count query error (%s): %v", column, err)
		return result
	}
	defer rows.Close()

	for rows.Next() {
		var targetID, count int
		var rtype models.ReactionType
		if err := rows.Scan(&targetID, &rtype, &count); err != nil {
			log.Printf("fetchBatchMetadata scan error (%s): %v", column, err)
			return result
		}
		meta := result[targetID]
		if rtype == models.ReactionLike {
			meta.Counts.Likes = count
		} else {
			meta.Counts.Dislikes = count
		}
		result[targetID] = meta
	}
	if err := rows.Err(); err != nil {
		log.Printf("fetchBatchMetadata rows error (%s): %v", column, err)
		return result
	}

	if viewerID <= 0 {
		return result
	}

	viewerRows, err := db.Query(
		`SELECT `+column+`, reaction_type
		 FROM reactions
		 WHERE user_id = $1 AND `+column+` = ANY($2)`,
		viewerID, pq.Array(ids))
	if err != nil {
		log.Printf("fetchBatchMetadata viewer query error (%s): %v", column, err)
		return result
	}
	defer viewerRows.Close()

	for viewerRows.Next() {
		var targetID int
		var rtype models.ReactionType
		if err := viewerRows.Scan(&targetID, &rtype); err != nil {
			log.Printf("fetchBatchMetadata viewer scan error (%s): %v", column, err)
			return result
		}
		meta := result[targetID]
		t := rtype
		meta.UserReaction = &t
		result[targetID] = meta
	}
	if err := viewerRows.Err(); err != nil {
		log.Printf("fetchBatchMetadata viewer rows error (%s): %v", column, err)
	}

	return result
}
