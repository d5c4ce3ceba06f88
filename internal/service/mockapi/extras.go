package mockapi

import (
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	model "github.com/zhouzirui/teamboard/internal/model/collab"
)

func (s *Service) addComment(e *extras, userID int64, content string) (model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Comment{}, invalid("Content can't be blank")
	}
	c := model.Comment{
		ID:        s.id(),
		Content:   content,
		User:      s.ref(userID),
		CreatedAt: s.now().UTC(),
	}
	e.comments = append(e.comments, c)
	return c, nil
}

func (e *extras) updateComment(userID, commentID int64, content string) (model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Comment{}, invalid("Content can't be blank")
	}
	for i, c := range e.comments {
		if c.ID != commentID {
			continue
		}
		if c.User.ID != userID {
			return model.Comment{}, ErrForbidden
		}
		e.comments[i].Content = content
		return e.comments[i], nil
	}
	return model.Comment{}, fmt.Errorf("comment %d: %w", commentID, ErrNotFound)
}

func (e *extras) removeComment(userID, commentID int64, moderator bool) error {
	for i, c := range e.comments {
		if c.ID != commentID {
			continue
		}
		if c.User.ID != userID && !moderator {
			return ErrForbidden
		}
		e.comments = append(e.comments[:i], e.comments[i+1:]...)
		return nil
	}
	return fmt.Errorf("comment %d: %w", commentID, ErrNotFound)
}

func (s *Service) addTag(e *extras, name string) (model.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Tag{}, invalid("Name can't be blank")
	}
	for _, t := range e.tags {
		if strings.EqualFold(t.Name, name) {
			return model.Tag{}, fmt.Errorf("tag %q: %w", name, ErrConflict)
		}
	}
	t := model.Tag{ID: s.id(), Name: name}
	e.tags = append(e.tags, t)
	return t, nil
}

func (e *extras) removeTag(tagID int64) error {
	for i, t := range e.tags {
		if t.ID == tagID {
			e.tags = append(e.tags[:i], e.tags[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("tag %d: %w", tagID, ErrNotFound)
}

func (s *Service) addAttachment(e *extras, filename string, data []byte) (model.Attachment, error) {
	filename = path.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == "/" {
		return model.Attachment{}, invalid("File can't be blank")
	}
	a := model.Attachment{ID: s.id(), Filename: filename, CreatedAt: s.now().UTC()}
	a.URL = blobPath(a.ID, filename)
	s.files[a.ID] = data
	e.attachments = append(e.attachments, a)
	return a, nil
}

func (e *extras) removeAttachment(attachmentID int64) error {
	for i, a := range e.attachments {
		if a.ID == attachmentID {
			e.attachments = append(e.attachments[:i], e.attachments[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("attachment %d: %w", attachmentID, ErrNotFound)
}

func (e *extras) attachment(attachmentID int64) (model.Attachment, bool) {
	for _, a := range e.attachments {
		if a.ID == attachmentID {
			return a, true
		}
	}
	return model.Attachment{}, false
}

// blobPath is the host-relative URL uploads are served from.
func blobPath(id int64, filename string) string {
	return fmt.Sprintf("/rails/active_storage/blobs/%d/%s", id, url.PathEscape(filename))
}

func sortByID[T any](items []T, id func(T) int64) {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) < id(items[j]) })
}

// Blob returns uploaded file content by id.
func (s *Service) Blob(id int64) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.files[id]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}
