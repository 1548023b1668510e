package dnssd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/miekg/dns"
	"github.com/spaolacci/murmur3"

	"github.com/dep2p/go-p2plink/pkg/types"
)

// ServiceType p2plink 使用的 DNS-SD 服务类型
const ServiceType = "_p2plink._udp.local."

const (
	// protoBonjour P2P 服务发现协议类型：Bonjour
	protoBonjour = 1

	// bonjourVersion wpa_supplicant bonjour query 的版本字节
	bonjourVersion = 1

	// statusSuccess 服务发现响应状态：成功
	statusSuccess = 0

	// maxTXTString 单条 TXT 字符串的最大长度
	maxTXTString = 255

	txtVersion = "txtvers=1"
	keyName    = "n"
	keyGUID    = "g"
)

var (
	// ErrEmptyName 名称为空
	ErrEmptyName = errors.New("dnssd: empty name")
	// ErrNameTooLong 名称或 GUID 超出 TXT 字符串长度
	ErrNameTooLong = errors.New("dnssd: name too long")
	// ErrMalformedTLV TLV 格式错误
	ErrMalformedTLV = errors.New("dnssd: malformed tlv")
)

// InstanceName 返回通告名称对应的服务实例全名
//
// 实例标签由 (name, guid) 的 murmur3 摘要得到，同一名称在重启后保持不变。
func InstanceName(an types.AdvertisedName) string {
	h := murmur3.New32()
	_, _ = h.Write([]byte(an.Name))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(an.GUID))
	return fmt.Sprintf("%08x.%s", h.Sum32(), ServiceType)
}

// EncodeService 生成 wpa_supplicant AddService 所需的 bonjour query 与 response
func EncodeService(an types.AdvertisedName) (query, response []byte, err error) {
	if an.Name == "" {
		return nil, nil, ErrEmptyName
	}
	if len(keyName)+1+len(an.Name) > maxTXTString || len(keyGUID)+1+len(an.GUID) > maxTXTString {
		return nil, nil, ErrNameTooLong
	}

	name := InstanceName(an)
	query, err = encodeQuery(name, dns.TypeTXT)
	if err != nil {
		return nil, nil, err
	}

	txt := &dns.TXT{
		Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeTXT, Class: dns.ClassINET},
		Txt: []string{txtVersion, keyName + "=" + an.Name, keyGUID + "=" + an.GUID},
	}
	response, err = packRdata(txt)
	if err != nil {
		return nil, nil, err
	}
	return query, response, nil
}

// QueryTLV 生成查询全部 bonjour 服务的请求 TLV
//
// 空的 query 数据让对端返回其所有 bonjour 服务，名称前缀过滤在本地完成。
func QueryTLV(transactionID byte) []byte {
	return []byte{0x02, 0x00, protoBonjour, transactionID}
}

// EncodeResponseTLV 生成单个通告名称的服务发现响应 TLV
func EncodeResponseTLV(transactionID byte, an types.AdvertisedName) ([]byte, error) {
	query, response, err := EncodeService(an)
	if err != nil {
		return nil, err
	}
	length := 3 + len(query) + len(response)
	tlv := make([]byte, 0, 2+length)
	tlv = binary.LittleEndian.AppendUint16(tlv, uint16(length))
	tlv = append(tlv, protoBonjour, transactionID, statusSuccess)
	tlv = append(tlv, query...)
	tlv = append(tlv, response...)
	return tlv, nil
}

// DecodeResponseTLVs 从服务发现响应中解析出对端通告的名称
//
// 非 bonjour、非成功状态、非 p2plink 服务的 TLV 被跳过。
// 单个 TLV 内容损坏时跳过该 TLV；长度字段损坏时返回 ErrMalformedTLV 与已解析的结果。
func DecodeResponseTLVs(tlvs []byte) ([]types.AdvertisedName, error) {
	var names []types.AdvertisedName
	for off := 0; off < len(tlvs); {
		if len(tlvs)-off < 2 {
			return names, ErrMalformedTLV
		}
		length := int(binary.LittleEndian.Uint16(tlvs[off:]))
		off += 2
		if length < 3 || off+length > len(tlvs) {
			return names, ErrMalformedTLV
		}
		proto, status := tlvs[off], tlvs[off+2]
		data := tlvs[off+3 : off+length]
		off += length

		if proto != protoBonjour || status != statusSuccess || len(data) == 0 {
			continue
		}
		an, ok := decodeBonjour(data)
		if ok {
			names = append(names, an)
		}
	}
	return names, nil
}

// ============================================================================
// 内部方法
// ============================================================================

func encodeQuery(name string, qtype uint16) ([]byte, error) {
	buf := make([]byte, maxTXTString+1)
	off, err := dns.PackDomainName(name, buf, 0, nil, false)
	if err != nil {
		return nil, fmt.Errorf("dnssd: pack name: %w", err)
	}
	buf = buf[:off]
	buf = binary.BigEndian.AppendUint16(buf, qtype)
	return append(buf, bonjourVersion), nil
}

// packRdata 打包资源记录并截取 RDATA 部分
func packRdata(rr dns.RR) ([]byte, error) {
	buf := make([]byte, dns.Len(rr)+16)
	end, err := dns.PackRR(rr, buf, 0, nil, false)
	if err != nil {
		return nil, fmt.Errorf("dnssd: pack rr: %w", err)
	}
	// 头部：名称 | 类型(2) | 类(2) | TTL(4) | RDLENGTH(2)
	nameEnd, err := dns.PackDomainName(rr.Header().Name, make([]byte, maxTXTString+1), 0, nil, false)
	if err != nil {
		return nil, fmt.Errorf("dnssd: pack name: %w", err)
	}
	rdlen := int(binary.BigEndian.Uint16(buf[nameEnd+8:]))
	return append([]byte(nil), buf[end-rdlen:end]...), nil
}

// decodeBonjour 解析 query 与 response 拼接而成的 bonjour 数据
func decodeBonjour(data []byte) (types.AdvertisedName, bool) {
	name, off, err := dns.UnpackDomainName(data, 0)
	if err != nil || off+3 > len(data) {
		return types.AdvertisedName{}, false
	}
	rrtype := binary.BigEndian.Uint16(data[off:])
	rdata := data[off+3:]
	if rrtype != dns.TypeTXT || !strings.HasSuffix(strings.ToLower(name), ServiceType) {
		return types.AdvertisedName{}, false
	}

	// 重建完整的资源记录交给 dns.UnpackRR 解析
	msg := make([]byte, 0, off+10+len(rdata))
	msg = append(msg, data[:off]...)
	msg = binary.BigEndian.AppendUint16(msg, dns.TypeTXT)
	msg = binary.BigEndian.AppendUint16(msg, dns.ClassINET)
	msg = binary.BigEndian.AppendUint32(msg, 0)
	msg = binary.BigEndian.AppendUint16(msg, uint16(len(rdata)))
	msg = append(msg, rdata...)

	rr, _, err := dns.UnpackRR(msg, 0)
	if err != nil {
		return types.AdvertisedName{}, false
	}
	txt, ok := rr.(*dns.TXT)
	if !ok {
		return types.AdvertisedName{}, false
	}

	var an types.AdvertisedName
	for _, s := range txt.Txt {
		k, v, found := strings.Cut(s, "=")
		if !found {
			continue
		}
		switch k {
		case keyName:
			an.Name = v
		case keyGUID:
			an.GUID = v
		}
	}
	if an.Name == "" {
		return types.AdvertisedName{}, false
	}
	return an, true
}
