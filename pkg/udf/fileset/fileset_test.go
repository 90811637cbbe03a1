package fileset

import (
	"testing"
	"time"

	"github.com/bgrewell/udf-kit/pkg/udf/allocation"
	"github.com/bgrewell/udf-kit/pkg/udf/descriptor"
	"github.com/stretchr/testify/require"
)

func TestFileSetDescriptor_MarshalUnmarshal(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		fsd := &FileSetDescriptor{
			RecordingDateAndTime:    time.Date(2024, time.February, 2, 14, 30, 0, 0, time.UTC),
			InterchangeLevel:        3,
			MaximumInterchangeLevel: 3,
			CharacterSetList:        1,
			MaximumCharacterSetList: 1,
			FileSetNumber:           0,
			FileSetDescriptorNumber: 0,
			LogicalVolumeIdentifier: "TESTVOL",
			FileSetIdentifier:       "TESTFS",
			CopyrightFileIdentifier: "COPYRIGHT",
			AbstractFileIdentifier:  "ABSTRACT",
			RootDirectoryICB: allocation.LongAD{
				Type:         allocation.EXTENT_RECORDED,
				ExtentLength: 2048,
				ExtentLocation: allocation.LBAddr{
					LogicalBlockNumber: 1,
				},
			},
		}
		fsd.DomainIdentifier.SetIdentifier("*OSTA UDF Compliant")

		data, err := fsd.Marshal()
		require.NoError(t, err)

		var got FileSetDescriptor
		require.NoError(t, got.Unmarshal(data[:]))

		require.Equal(t, "TESTVOL", got.LogicalVolumeIdentifier)
		require.Equal(t, "TESTFS", got.FileSetIdentifier)
		require.Equal(t, "COPYRIGHT", got.CopyrightFileIdentifier)
		require.Equal(t, "ABSTRACT", got.AbstractFileIdentifier)
		require.Equal(t, "*OSTA UDF Compliant", got.DomainIdentifier.IdentifierString())
		require.Equal(t, uint32(1), got.RootDirectoryICB.BlockNumber())
		require.Equal(t, uint32(2048), got.RootDirectoryICB.Length())
		require.True(t, fsd.RecordingDateAndTime.Equal(got.RecordingDateAndTime))
	})

	t.Run("wrong tag identifier", func(t *testing.T) {
		td := &descriptor.TerminatingDescriptor{}
		data, err := td.Marshal()
		require.NoError(t, err)

		var got FileSetDescriptor
		require.ErrorIs(t, got.Unmarshal(data[:]), descriptor.ErrTagMismatch)
	})
}
