package main

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emlib/src/drivers/cryptodrv"
	"emlib/src/hardware/efr32"
)

func TestShortRun(t *testing.T) {
	old := *numOps
	*numOps = 60
	defer func() { *numOps = old }()

	part, err := efr32.NewPart(efr32.DefaultConfig())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go part.Run(ctx)
	table := cryptodrv.NewTable(part)

	var tl tally
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			worker(ctx, part, table, id, &tl)
		}(i)
	}
	wg.Wait()

	assert.Zero(t, tl.wrong)
	assert.Equal(t, 4*60, tl.hashes+tl.ciphers+tl.holds+tl.busy)
	for i := 0; i < table.Len(); i++ {
		assert.Nil(t, table.Device(i).Owner())
		assert.False(t, table.Device(i).ClockEnabled())
	}
}
