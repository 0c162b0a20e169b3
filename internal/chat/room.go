package chat

// Room is a named broadcast group. Members are kept in join order so /who
// output is deterministic.
type Room struct {
	name    string
	members []*Client
}

func newRoom(name string) *Room {
	return &Room{name: name}
}

func (r *Room) add(c *Client) {
	if r.has(c) {
		return
	}
	r.members = append(r.members, c)
}

func (r *Room) remove(c *Client) {
	for i, m := range r.members {
		if m == c {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return
		}
	}
}

func (r *Room) has(c *Client) bool {
	for _, m := range r.members {
		if m == c {
			return true
		}
	}
	return false
}

func (r *Room) empty() bool {
	return len(r.members) == 0
}
