package store_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/zujuan/internal/zujuan/store"
	"github.com/aussiebroadwan/zujuan/internal/zujuan/store/storetest"
	"github.com/aussiebroadwan/zujuan/pkg/cryptox"
)

func TestCodec(t *testing.T) {
	t.Parallel()

	sess := storetest.Session(t)

	t.Run("plain json", func(t *testing.T) {
		t.Parallel()

		blob, err := store.Codec{}.Encode(sess)
		require.NoError(t, err)
		require.True(t, bytes.Contains(blob, []byte(sess.Cookies[0].Value)))

		got, err := store.Codec{}.Decode(blob)
		require.NoError(t, err)
		require.Equal(t, sess.ID, got.ID)
	})

	t.Run("sealed", func(t *testing.T) {
		t.Parallel()

		sealer, err := cryptox.NewSealer([]byte("0123456789abcdef0123456789abcdef"))
		require.NoError(t, err)
		codec := store.Codec{Sealer: sealer}

		blob, err := codec.Encode(sess)
		require.NoError(t, err)
		require.False(t, bytes.Contains(blob, []byte(sess.Cookies[0].Value)))

		got, err := codec.Decode(blob)
		require.NoError(t, err)
		require.Equal(t, sess.Cookies, got.Cookies)

		blob[len(blob)-1] ^= 0xff
		_, err = codec.Decode(blob)
		require.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()

		_, err := store.Codec{}.Decode([]byte("not json"))
		require.Error(t, err)
	})
}
