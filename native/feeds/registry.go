package feeds

// calculatedSet is the enumerable registry of calculated feeds: a list of
// identifiers plus a reverse map carrying the backing collaborator handle,
// its contract address, and the entry's 1-based list position. Removal uses
// swap-and-pop, so list order is not insertion order; uniqueness and 1-based
// addressability are the invariants.
type calculatedSet struct {
	entries map[FeedID]calcEntry
	list    []FeedID
}

type calcEntry struct {
	feed    CalculatedFeed
	address [20]byte
	index   uint64 // 1-based position in list, 0 = absent
}

func newCalculatedSet() *calculatedSet {
	return &calculatedSet{entries: make(map[FeedID]calcEntry)}
}

func (s *calculatedSet) clone() *calculatedSet {
	cp := &calculatedSet{
		entries: make(map[FeedID]calcEntry, len(s.entries)),
		list:    append([]FeedID(nil), s.list...),
	}
	for id, entry := range s.entries {
		cp.entries[id] = entry
	}
	return cp
}

// get returns the backing handle for id, or nil when unregistered.
func (s *calculatedSet) get(id FeedID) CalculatedFeed {
	return s.entries[id].feed
}

func (s *calculatedSet) addressOf(id FeedID) ([20]byte, bool) {
	entry, ok := s.entries[id]
	return entry.address, ok
}

func (s *calculatedSet) ids() []FeedID {
	return append([]FeedID(nil), s.list...)
}

func (s *calculatedSet) len() int { return len(s.list) }

// add registers a new calculated feed under its self-reported identifier.
func (s *calculatedSet) add(feed CalculatedFeed) (FeedID, error) {
	if feed == nil {
		return ZeroFeedID, ErrNilCollaborator
	}
	id, err := feed.FeedID()
	if err != nil {
		return ZeroFeedID, err
	}
	if !id.Calculated() {
		return ZeroFeedID, ErrInvalidCategory
	}
	if _, ok := s.entries[id]; ok {
		return ZeroFeedID, ErrFeedExists
	}
	s.list = append(s.list, id)
	s.entries[id] = calcEntry{feed: feed, address: feed.Address(), index: uint64(len(s.list))}
	return id, nil
}

// replace swaps the backing handle for an existing entry, keeping its list
// position. Returns the identifier and the previous address.
func (s *calculatedSet) replace(feed CalculatedFeed) (FeedID, [20]byte, error) {
	if feed == nil {
		return ZeroFeedID, [20]byte{}, ErrNilCollaborator
	}
	id, err := feed.FeedID()
	if err != nil {
		return ZeroFeedID, [20]byte{}, err
	}
	entry, ok := s.entries[id]
	if !ok {
		return ZeroFeedID, [20]byte{}, ErrFeedNotFound
	}
	oldAddr := entry.address
	entry.feed = feed
	entry.address = feed.Address()
	s.entries[id] = entry
	return id, oldAddr, nil
}

// remove deletes the entry for id via swap-and-pop and returns its address.
func (s *calculatedSet) remove(id FeedID) ([20]byte, error) {
	entry, ok := s.entries[id]
	if !ok {
		return [20]byte{}, ErrFeedNotFound
	}
	last := uint64(len(s.list))
	if entry.index != last {
		moved := s.list[last-1]
		s.list[entry.index-1] = moved
		movedEntry := s.entries[moved]
		movedEntry.index = entry.index
		s.entries[moved] = movedEntry
	}
	s.list = s.list[:last-1]
	delete(s.entries, id)
	return entry.address, nil
}
