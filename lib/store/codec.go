package store

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dCDT/lib/cdt"
	"github.com/ValentinKolb/dCDT/lib/record"
)

// --------------------------------------------------------------------------
// Batch Encoding
// --------------------------------------------------------------------------

// EncodeBatch serializes the request part of the batch records (kind, key,
// ops, ttl and UDF call). It is used by the raft command and the RPC message.
func EncodeBatch(records []*BatchRecord) ([]byte, error) {
	buf := binary.AppendUvarint(nil, uint64(len(records)))
	var err error
	for i, b := range records {
		if b == nil {
			return nil, NewError(RetCInvalidOperation, fmt.Sprintf("batch record %d is nil", i))
		}
		buf = append(buf, byte(b.Kind))
		buf = cdt.AppendString(buf, b.Key)
		if buf, err = record.AppendOps(buf, b.Ops); err != nil {
			return nil, FromError(err)
		}
		buf = cdt.AppendVarint(buf, b.TTL)
		buf = cdt.AppendString(buf, b.Module)
		buf = cdt.AppendString(buf, b.Function)
		if buf, err = cdt.AppendValue(buf, b.Args); err != nil {
			return nil, FromError(err)
		}
	}
	return buf, nil
}

// DecodeBatch deserializes batch records written by EncodeBatch.
func DecodeBatch(data []byte) ([]*BatchRecord, error) {
	r := cdt.NewReader(data)
	n, err := r.ReadLen()
	if err != nil {
		return nil, err
	}

	records := make([]*BatchRecord, n)
	for i := range records {
		b := &BatchRecord{}
		kind, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		b.Kind = BatchKind(kind)
		if b.Key, err = r.ReadString(); err != nil {
			return nil, err
		}
		if b.Ops, err = record.ReadOps(r); err != nil {
			return nil, err
		}
		if b.TTL, err = r.ReadVarint(); err != nil {
			return nil, err
		}
		if b.Module, err = r.ReadString(); err != nil {
			return nil, err
		}
		if b.Function, err = r.ReadString(); err != nil {
			return nil, err
		}
		args, err := r.ReadValue()
		if err != nil {
			return nil, err
		}
		if args != nil {
			list, ok := args.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: batch args must be a list, got %T", cdt.ErrMalformed, args)
			}
			if len(list) > 0 {
				b.Args = list
			}
		}
		records[i] = b
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after batch", cdt.ErrMalformed, r.Remaining())
	}
	return records, nil
}

// EncodeBatchResults serializes the populated part of the batch records.
func EncodeBatchResults(records []*BatchRecord) ([]byte, error) {
	buf := binary.AppendUvarint(nil, uint64(len(records)))
	for _, b := range records {
		buf = binary.AppendUvarint(buf, uint64(b.ResultCode))
		msg := ""
		if b.Err != nil {
			msg = b.Err.Msg
		}
		buf = cdt.AppendString(buf, msg)

		var flags byte
		if b.InDoubt {
			flags |= 1
		}
		if b.Record != nil {
			flags |= 2
		}
		buf = append(buf, flags)

		if b.Record != nil {
			data, err := record.Encode(b.Record)
			if err != nil {
				return nil, FromError(err)
			}
			buf = cdt.AppendBytes(buf, data)
		}

		results, err := record.EncodeValues(b.Results)
		if err != nil {
			return nil, FromError(err)
		}
		buf = cdt.AppendBytes(buf, results)
	}
	return buf, nil
}

// DecodeBatchResults fills records with the results written by
// EncodeBatchResults. records must be the batch the results belong to.
func DecodeBatchResults(records []*BatchRecord, data []byte) error {
	r := cdt.NewReader(data)
	n, err := r.ReadLen()
	if err != nil {
		return err
	}
	if n != len(records) {
		return fmt.Errorf("%w: got %d batch results for %d records", cdt.ErrMalformed, n, len(records))
	}

	for _, b := range records {
		b.Reset()
		code, err := r.ReadUvarint()
		if err != nil {
			return err
		}
		msg, err := r.ReadString()
		if err != nil {
			return err
		}
		b.ResultCode = RetCode(code)
		if b.ResultCode != RetCSuccess {
			b.Err = NewError(b.ResultCode, msg)
		}

		flags, err := r.ReadByte()
		if err != nil {
			return err
		}
		b.InDoubt = flags&1 != 0

		if flags&2 != 0 {
			data, err := r.ReadBytes()
			if err != nil {
				return err
			}
			if b.Record, err = record.Decode(b.Key, data); err != nil {
				return err
			}
		}

		results, err := r.ReadBytes()
		if err != nil {
			return err
		}
		if b.Results, err = record.DecodeValues(results); err != nil {
			return err
		}
		if len(b.Results) == 0 {
			b.Results = nil
		}
	}
	if r.Remaining() != 0 {
		return fmt.Errorf("%w: %d trailing bytes after batch results", cdt.ErrMalformed, r.Remaining())
	}
	return nil
}
