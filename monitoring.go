package todostore

type Stats struct {
	Todos  int
	LastID uint64
	NextID uint64

	DataSize  int64
	DataAlloc int64
	DBSize    int64
}

func (tx *Tx) Stats() Stats {
	bs := tx.todos().Stats()
	return Stats{
		Todos:     bs.KeyN,
		LastID:    tx.LastID(),
		NextID:    tx.NextID(),
		DataSize:  bs.LeafInuse,
		DataAlloc: bs.TotalAlloc(),
		DBSize:    tx.stx.Size(),
	}
}
