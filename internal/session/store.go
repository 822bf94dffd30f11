package session

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"votify/internal/chat"
)

// MaxChatHistory bounds the persisted chat transcript.
const MaxChatHistory = 50

var (
	authBucket = []byte("auth")
	chatBucket = []byte("chat")
	tokenKey   = []byte("token")
)

// Store persists the login token and chat history between runs.
type Store struct {
	db *bolt.DB
}

// OpenStore opens (creating if needed) the bbolt file at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{authBucket, chatBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init session store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Token returns the saved token or "" when logged out.
func (s *Store) Token() (string, error) {
	var tok string
	err := s.db.View(func(tx *bolt.Tx) error {
		tok = string(tx.Bucket(authBucket).Get(tokenKey))
		return nil
	})
	return tok, err
}

func (s *Store) SaveToken(tok string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(authBucket).Put(tokenKey, []byte(tok))
	})
}

// ChatHistory returns the stored messages oldest first.
func (s *Store) ChatHistory() ([]chat.Message, error) {
	var out []chat.Message
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(chatBucket).ForEach(func(_, v []byte) error {
			var m chat.Message
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			out = append(out, m)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read chat history: %w", err)
	}
	return out, nil
}

// AppendChat stores msgs and trims the history to the newest MaxChatHistory.
func (s *Store) AppendChat(msgs ...chat.Message) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(chatBucket)
		for _, m := range msgs {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			data, err := json.Marshal(m)
			if err != nil {
				return err
			}
			if err := b.Put(seqKey(seq), data); err != nil {
				return err
			}
		}

		n := 0
		if err := b.ForEach(func(_, _ []byte) error { n++; return nil }); err != nil {
			return err
		}
		excess := n - MaxChatHistory
		c := b.Cursor()
		for k, _ := c.First(); k != nil && excess > 0; k, _ = c.First() {
			if err := c.Delete(); err != nil {
				return err
			}
			excess--
		}
		return nil
	})
}

// Clear forgets the token and the chat history.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(authBucket).Delete(tokenKey); err != nil {
			return err
		}
		if err := tx.DeleteBucket(chatBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(chatBucket)
		return err
	})
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
