package rpc

import (
	"encoding/hex"
	"encoding/json"

	"feedregistry/native/feeds"
)

func (s *Server) dispatch(method string, params []json.RawMessage) (interface{}, *rpcError) {
	switch method {
	case "feeds_supported":
		return s.handleSupported()
	case "feeds_calculated":
		return s.handleCalculated()
	case "feeds_changed":
		return s.handleChanged()
	case "feeds_alias":
		return s.handleAlias(params)
	case "feeds_indexOf":
		return s.handleIndexOf(params)
	case "feeds_idAt":
		return s.handleIDAt(params)
	case "feeds_fetch":
		return s.handleFetch(params, false)
	case "feeds_fetchWei":
		return s.handleFetch(params, true)
	case "feeds_fetchByIndex":
		return s.handleFetchByIndex(params)
	case "feeds_fee":
		return s.handleFee(params)
	case "feeds_feeByIndex":
		return s.handleFeeByIndex(params)
	case "feeds_verify":
		return s.handleVerify(params)
	case "feeds_changeAliases":
		return s.handleChangeAliases(params)
	case "feeds_addCalculated":
		return s.handleAddCalculated(params)
	case "feeds_replaceCalculated":
		return s.handleReplaceCalculated(params)
	case "feeds_removeCalculated":
		return s.handleRemoveCalculated(params)
	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: "unknown method: " + method}
	}
}

func decodeParams(params []json.RawMessage, out interface{}) *rpcError {
	if len(params) != 1 {
		return &rpcError{Code: codeInvalidParams, Message: "expected a single params object"}
	}
	if err := json.Unmarshal(params[0], out); err != nil {
		return &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	return nil
}

func (s *Server) handleSupported() (interface{}, *rpcError) {
	ids, err := s.engine.SupportedFeedIDs()
	if err != nil {
		return nil, errorToRPC(err)
	}
	return encodeFeedIDs(ids), nil
}

func (s *Server) handleCalculated() (interface{}, *rpcError) {
	ids := s.engine.CalculatedFeedIDs()
	out := make([]calculatedEntry, 0, len(ids))
	for _, id := range ids {
		addr, _ := s.engine.CalculatedFeedAddress(id)
		out = append(out, calculatedEntry{FeedID: id.String(), Address: "0x" + hex.EncodeToString(addr[:])})
	}
	return out, nil
}

func (s *Server) handleChanged() (interface{}, *rpcError) {
	return encodeFeedIDs(s.engine.ChangedFeedIDs()), nil
}

func (s *Server) handleAlias(params []json.RawMessage) (interface{}, *rpcError) {
	var p feedIDParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	id, err := feeds.ParseFeedID(p.FeedID)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]string{"newFeedId": s.engine.Alias(id).String()}, nil
}

func (s *Server) handleIndexOf(params []json.RawMessage) (interface{}, *rpcError) {
	var p feedIDParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	id, err := feeds.ParseFeedID(p.FeedID)
	if err != nil {
		return nil, errorToRPC(err)
	}
	index, err := s.engine.IndexOf(id)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]uint64{"index": index}, nil
}

func (s *Server) handleIDAt(params []json.RawMessage) (interface{}, *rpcError) {
	var p indexParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	id, err := s.engine.IDAt(p.Index)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]string{"feedId": id.String()}, nil
}

func (s *Server) handleFetch(params []json.RawMessage, inWei bool) (interface{}, *rpcError) {
	var p fetchParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	ids, err := parseFeedIDs(p.FeedIDs)
	if err != nil {
		return nil, errorToRPC(err)
	}
	value, err := parseValue(p.Value)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	if inWei {
		values, timestamp, err := s.engine.FetchByIDInWei(ids, value)
		if err != nil {
			return nil, errorToRPC(err)
		}
		return fetchWeiResult{Values: encodeValues(values), Decimals: feeds.WeiDecimals, Timestamp: timestamp}, nil
	}
	values, decimals, timestamp, err := s.engine.FetchByID(ids, value)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return fetchResult{Values: encodeValues(values), Decimals: decimals, Timestamp: timestamp}, nil
}

func (s *Server) handleFetchByIndex(params []json.RawMessage) (interface{}, *rpcError) {
	var p fetchByIndexParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	value, err := parseValue(p.Value)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	values, decimals, timestamp, err := s.engine.FetchByIndex(p.Indices, value)
	if err != nil {
		return nil, errorToRPC(err)
	}
	return fetchResult{Values: encodeValues(values), Decimals: decimals, Timestamp: timestamp}, nil
}

func (s *Server) handleFee(params []json.RawMessage) (interface{}, *rpcError) {
	var p feedIDsParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	ids, err := parseFeedIDs(p.FeedIDs)
	if err != nil {
		return nil, errorToRPC(err)
	}
	fee, err := s.engine.FeeForMany(ids)
	if err != nil {
		return nil, errorToRPC(err)
	}
	s.metrics.ObserveFeeQuote("feeds_fee", fee)
	return feeResult{Fee: fee.String()}, nil
}

func (s *Server) handleFeeByIndex(params []json.RawMessage) (interface{}, *rpcError) {
	var p indicesParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	fee, err := s.engine.FeeForIndices(p.Indices)
	if err != nil {
		return nil, errorToRPC(err)
	}
	if fee == nil {
		return feeResult{Fee: "0"}, nil
	}
	s.metrics.ObserveFeeQuote("feeds_feeByIndex", fee)
	return feeResult{Fee: fee.String()}, nil
}

func (s *Server) handleVerify(params []json.RawMessage) (interface{}, *rpcError) {
	var p verifyParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	id, err := feeds.ParseFeedID(p.Body.FeedID)
	if err != nil {
		return nil, errorToRPC(err)
	}
	proof, err := parseProof(p.Proof)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	ok, err := s.engine.VerifyFeedData(feeds.FeedDataWithProof{
		Proof: proof,
		Body: feeds.FeedData{
			VotingRoundID: p.Body.VotingRoundID,
			ID:            id,
			Value:         p.Body.Value,
			TurnoutBIPS:   p.Body.TurnoutBIPS,
			Decimals:      p.Body.Decimals,
		},
	})
	if err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"verified": ok}, nil
}

func (s *Server) handleChangeAliases(params []json.RawMessage) (interface{}, *rpcError) {
	var p changeAliasesParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	oldIDs, err := parseFeedIDs(p.OldFeedIDs)
	if err != nil {
		return nil, errorToRPC(err)
	}
	newIDs, err := parseAliasFeedIDs(p.NewFeedIDs)
	if err != nil {
		return nil, errorToRPC(err)
	}
	if err := s.engine.ChangeAliases(s.adminCaller, oldIDs, newIDs); err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) dialAll(raw []string) ([]feeds.CalculatedFeed, *rpcError) {
	if s.dialer == nil {
		return nil, &rpcError{Code: codeServerError, Message: "calculated feed dialer not configured"}
	}
	handles := make([]feeds.CalculatedFeed, 0, len(raw))
	for _, sAddr := range raw {
		addr, err := parseAddress(sAddr)
		if err != nil {
			return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
		}
		handle, err := s.dialer.Dial(addr)
		if err != nil {
			return nil, errorToRPC(err)
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

func (s *Server) handleAddCalculated(params []json.RawMessage) (interface{}, *rpcError) {
	var p addressesParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	handles, rpcErr := s.dialAll(p.Addresses)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.AddCalculated(s.adminCaller, handles); err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) handleReplaceCalculated(params []json.RawMessage) (interface{}, *rpcError) {
	var p addressesParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	handles, rpcErr := s.dialAll(p.Addresses)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.ReplaceCalculated(s.adminCaller, handles); err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) handleRemoveCalculated(params []json.RawMessage) (interface{}, *rpcError) {
	var p feedIDsParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	ids, err := parseFeedIDs(p.FeedIDs)
	if err != nil {
		return nil, errorToRPC(err)
	}
	if err := s.engine.RemoveCalculated(s.adminCaller, ids); err != nil {
		return nil, errorToRPC(err)
	}
	return map[string]bool{"ok": true}, nil
}
