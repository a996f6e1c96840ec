package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/grouplane-network/grouplane/pkg/model"
)

// Device agent table names. Entries live at "<table>|<profile>|<id>" with
// the JSON document in the "json" field.
const (
	groupTable  = "ACT_PROF_GROUP"
	memberTable = "ACT_PROF_MEMBER"
)

// AgentClient implements Client against a device agent that exposes its
// group and member tables as a Redis DB. INSERT fails on an existing entry
// and MODIFY on a missing one, matching the device write protocol.
type AgentClient struct {
	addr   string
	client *redis.Client
}

// NewAgentClient creates a client for the agent DB at addr.
func NewAgentClient(addr string, db int) *AgentClient {
	return &AgentClient{
		addr:   addr,
		client: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
	}
}

// Connect tests the connection
func (c *AgentClient) Connect(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the connection
func (c *AgentClient) Close() error {
	return c.client.Close()
}

// WriteGroup programs, updates or removes one group entry.
func (c *AgentClient) WriteGroup(ctx context.Context, group model.Group, op WriteOp) error {
	key := entryKey(groupTable, group.Profile, uint32(group.ID))
	data, err := json.Marshal(group)
	if err != nil {
		return fmt.Errorf("encoding group %s: %w", group, err)
	}
	return c.write(ctx, key, string(data), op)
}

// WriteMembers programs, updates or removes member entries.
func (c *AgentClient) WriteMembers(ctx context.Context, members []model.Member, op WriteOp) error {
	for _, m := range members {
		key := entryKey(memberTable, m.Profile, uint32(m.ID))
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encoding member %d: %w", m.ID, err)
		}
		if err := c.write(ctx, key, string(data), op); err != nil {
			return err
		}
	}
	return nil
}

func (c *AgentClient) write(ctx context.Context, key, data string, op WriteOp) error {
	switch op {
	case Insert:
		created, err := c.client.HSetNX(ctx, key, "json", data).Result()
		if err != nil {
			return err
		}
		if !created {
			return fmt.Errorf("INSERT %s: entry already exists", key)
		}
		return nil
	case Modify:
		n, err := c.client.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("MODIFY %s: no such entry", key)
		}
		return c.client.HSet(ctx, key, "json", data).Err()
	case Delete:
		n, err := c.client.Del(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("DELETE %s: no such entry", key)
		}
		return nil
	}
	return fmt.Errorf("write %s: unknown op %d", key, op)
}

// DumpGroups reads all groups of an action profile.
func (c *AgentClient) DumpGroups(ctx context.Context, profile model.ActionProfileID) ([]model.Group, error) {
	keys, err := c.scanKeys(ctx, fmt.Sprintf("%s|%s|*", groupTable, profile))
	if err != nil {
		return nil, err
	}
	groups := make([]model.Group, 0, len(keys))
	for _, key := range keys {
		data, err := c.client.HGet(ctx, key, "json").Result()
		if err == redis.Nil {
			continue // deleted between scan and read
		}
		if err != nil {
			return nil, err
		}
		var g model.Group
		if err := json.Unmarshal([]byte(data), &g); err != nil {
			return nil, fmt.Errorf("malformed group at %s: %w", key, err)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// DumpMemberIDs reads the ids of all members of an action profile. Ids are
// parsed from the entry keys; the stored documents are not consulted.
func (c *AgentClient) DumpMemberIDs(ctx context.Context, profile model.ActionProfileID) ([]model.MemberID, error) {
	prefix := fmt.Sprintf("%s|%s|", memberTable, profile)
	keys, err := c.scanKeys(ctx, prefix+"*")
	if err != nil {
		return nil, err
	}
	ids := make([]model.MemberID, 0, len(keys))
	for _, key := range keys {
		raw := strings.TrimPrefix(key, prefix)
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed member key %s: %w", key, err)
		}
		ids = append(ids, model.MemberID(id))
	}
	return ids, nil
}

// RemoveMembers deletes the given members in one pipelined transaction and
// returns the ids that actually existed on the device.
func (c *AgentClient) RemoveMembers(ctx context.Context, profile model.ActionProfileID, ids []model.MemberID) ([]model.MemberID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	pipe := c.client.TxPipeline()
	cmds := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Del(ctx, entryKey(memberTable, profile, uint32(id)))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pipeline exec: %w", err)
	}
	removed := make([]model.MemberID, 0, len(ids))
	for i, cmd := range cmds {
		if cmd.Val() > 0 {
			removed = append(removed, ids[i])
		}
	}
	return removed, nil
}

// scanKeys iterates matching keys with cursor-based SCAN (non-blocking,
// unlike KEYS).
func (c *AgentClient) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

func entryKey(table string, profile model.ActionProfileID, id uint32) string {
	return fmt.Sprintf("%s|%s|%d", table, profile, id)
}
